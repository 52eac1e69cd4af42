package selection

import "fmt"

// ExportRow is one line of the export table. Photos always has exactly
// Limit cells; unused cells are empty strings.
type ExportRow struct {
	Username string   `json:"username"`
	Photos   []string `json:"photos"`
}

// NewExportRow places urls into the first cells of a limit-wide row.
// URLs beyond limit are dropped.
func NewExportRow(username string, urls []string, limit int) ExportRow {
	photos := make([]string, limit)
	copy(photos, urls)
	return ExportRow{Username: username, Photos: photos}
}

// Record returns the row as table cells: username then photo_1..photo_N
func (r ExportRow) Record() []string {
	return append([]string{r.Username}, r.Photos...)
}

// Header returns the column names for a limit-wide table
func Header(limit int) []string {
	header := make([]string, 0, limit+1)
	header = append(header, "username")
	for i := 1; i <= limit; i++ {
		header = append(header, fmt.Sprintf("photo_%d", i))
	}
	return header
}
