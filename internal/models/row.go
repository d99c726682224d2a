package models

// RowUpdate is a sheet-sync intent emitted by the engine: the complete
// current row state for one participant, before display-name resolution.
type RowUpdate struct {
	Date      string
	UserID    string
	Mode      AttendanceMode // zero value when the participant is unclassified
	Presenter bool
	Topic     string
}

// SheetRow is a RowUpdate with the participant's resolved display name,
// ready to write to the tabular store.
type SheetRow struct {
	Date        string         `json:"date"`
	UserID      string         `json:"userId"`
	DisplayName string         `json:"displayName"`
	Mode        AttendanceMode `json:"mode,omitempty"`
	Presenter   bool           `json:"presenter"`
	Topic       string         `json:"topic,omitempty"`
}

// WithName attaches a resolved display name to the update.
func (u RowUpdate) WithName(name string) SheetRow {
	return SheetRow{
		Date:        u.Date,
		UserID:      u.UserID,
		DisplayName: name,
		Mode:        u.Mode,
		Presenter:   u.Presenter,
		Topic:       u.Topic,
	}
}

// PresenterCell renders the 発表の有無 column value.
func (r SheetRow) PresenterCell() string {
	if r.Presenter {
		return "○"
	}
	return ""
}
