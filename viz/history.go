// ABOUTME: Terminal summary of recorded session transitions
// ABOUTME: Provides ASCII rendering for the history command
package viz

import (
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/peoplelogin/flow"
	"github.com/harperreed/peoplelogin/models"
)

type HistoryStats struct {
	Sessions int
	// Entered counts how often each state was entered.
	Entered map[string]int
	Recent  []models.SessionEvent
}

// maxRecent bounds the recent transitions shown.
const maxRecent = 15

func GenerateHistoryStats(events []models.SessionEvent) *HistoryStats {
	stats := &HistoryStats{Entered: make(map[string]int)}

	sessions := make(map[string]bool)
	for _, e := range events {
		sessions[e.SessionID.String()] = true
		stats.Entered[e.To]++
	}
	stats.Sessions = len(sessions)

	stats.Recent = events
	if len(events) > maxRecent {
		stats.Recent = events[len(events)-maxRecent:]
	}

	return stats
}

func RenderHistory(stats *HistoryStats) string {
	var out strings.Builder

	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString("  PEOPLELOGIN SESSION HISTORY\n")
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	if len(stats.Recent) == 0 {
		out.WriteString("No session events recorded.\n")
		return out.String()
	}

	out.WriteString(fmt.Sprintf("SESSIONS: %d\n\n", stats.Sessions))

	out.WriteString("STATES ENTERED\n")
	renderStates(&out, stats.Entered)
	out.WriteString("\n")

	out.WriteString("RECENT TRANSITIONS\n")
	for _, e := range stats.Recent {
		out.WriteString(fmt.Sprintf("  %s  %s  %-15s --%s--> %s\n",
			e.At.Local().Format(time.DateTime),
			shortID(e.SessionID.String()),
			e.From, e.Event, e.To))
	}

	return out.String()
}

func renderStates(out *strings.Builder, entered map[string]int) {
	maxCount := 0
	for _, n := range entered {
		if n > maxCount {
			maxCount = n
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}

	for _, state := range flow.AllStates() {
		n, exists := entered[state.String()]
		if !exists {
			continue
		}

		// 0-10 blocks
		barLength := (n * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)

		out.WriteString(fmt.Sprintf("  %-16s %s  %d\n", state, bar, n))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
