package board

// ChangeKind identifies what part of the board a change touched.
type ChangeKind string

const (
	ChangeColumnAppended  ChangeKind = "column_appended"
	ChangeNoteAppended    ChangeKind = "note_appended"
	ChangeColumnRetitled  ChangeKind = "column_retitled"
	ChangeNoteEdited      ChangeKind = "note_edited"
	ChangeSnapshotApplied ChangeKind = "snapshot_applied"
	ChangeRemoteApplied   ChangeKind = "remote_applied"
)

// Change is one entry in the model's change stream. Observation is deep: a
// mutation at any depth of the board emits a Change. Subscribers that fall
// behind see a coalesced stream; the signals already queued for them cover
// every earlier mutation, because consumers always read the full current
// state rather than the event payload.
type Change struct {
	Kind     ChangeKind
	ColumnID string
	NoteID   string
}
