// ABOUTME: Formats connection records into output lines
// ABOUTME: Header, one line per record, and the empty-list placeholder
package flow

import "github.com/harperreed/peoplelogin/models"

// Output lines for a connection listing.
const (
	HeaderLine        = "Connections below:"
	NoNameLine        = "No display name found for connection."
	NoConnectionsLine = "No connections found."
)

// FormatConnections turns up to max records into output lines: a header
// followed by one line per record, or a single line when there are none.
func FormatConnections(conns []models.Connection, max int) []string {
	if max > 0 && len(conns) > max {
		conns = conns[:max]
	}
	if len(conns) == 0 {
		return []string{NoConnectionsLine}
	}

	lines := make([]string, 0, len(conns)+1)
	lines = append(lines, HeaderLine)
	for _, c := range conns {
		if name, ok := c.DisplayName(); ok {
			lines = append(lines, name)
		} else {
			lines = append(lines, NoNameLine)
		}
	}

	return lines
}
