package board

import (
	"fmt"
	"sync"

	"github.com/automerge/automerge-go"
	"github.com/google/uuid"

	"github.com/plankhq/plank/internal/domain"
)

const (
	columnsKey = "columns"
	idKey      = "id"
	titleKey   = "title"
	notesKey   = "notes"
	textKey    = "text"
)

// subscriberBuffer bounds each change-stream channel. A full buffer already
// holds signals covering every earlier mutation, so further sends coalesce.
const subscriberBuffer = 16

// ColumnHandle identifies a column by its immutable id.
type ColumnHandle struct {
	ID string
}

// NoteHandle identifies a note by its immutable id within a column.
type NoteHandle struct {
	ColumnID string
	NoteID   string
}

// Model is the replicated board: an ordered list of columns, each holding an
// ordered list of notes, backed by an automerge document. Replication itself
// is the document's concern; Model is the typed view plus a change stream.
//
// All operations are safe for concurrent use. Local mutations are visible to
// ReadAll immediately; remote mutations become visible once a sync message
// carrying them is applied via ReceiveSyncMessage.
type Model struct {
	mu  sync.Mutex
	doc *automerge.Doc

	subMu   sync.Mutex
	subs    map[int]chan Change
	nextSub int
}

// New creates an empty board model.
func New() *Model {
	return &Model{
		doc:  automerge.New(),
		subs: make(map[int]chan Change),
	}
}

// AppendColumn creates a column with a fresh id and empty note list and
// appends it to the end of the board.
func (m *Model) AppendColumn(title string) (ColumnHandle, error) {
	id := uuid.NewString()

	m.mu.Lock()
	err := m.doc.Path(columnsKey).List().Append(map[string]any{
		idKey:    id,
		titleKey: title,
		notesKey: []any{},
	})
	m.mu.Unlock()
	if err != nil {
		return ColumnHandle{}, fmt.Errorf("board.AppendColumn: %w", err)
	}

	m.emit(Change{Kind: ChangeColumnAppended, ColumnID: id})
	return ColumnHandle{ID: id}, nil
}

// AppendNote creates a note with a fresh id and empty text at the end of the
// given column.
func (m *Model) AppendNote(col ColumnHandle) (NoteHandle, error) {
	id := uuid.NewString()

	m.mu.Lock()
	err := m.appendNoteLocked(col.ID, id, "")
	m.mu.Unlock()
	if err != nil {
		return NoteHandle{}, fmt.Errorf("board.AppendNote: %w", err)
	}

	m.emit(Change{Kind: ChangeNoteAppended, ColumnID: col.ID, NoteID: id})
	return NoteHandle{ColumnID: col.ID, NoteID: id}, nil
}

// SetColumnTitle replaces the title of an existing column. The column id is
// never altered.
func (m *Model) SetColumnTitle(col ColumnHandle, title string) error {
	m.mu.Lock()
	colMap, err := m.findColumnLocked(col.ID)
	if err == nil {
		err = colMap.Set(titleKey, title)
	}
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("board.SetColumnTitle: %w", err)
	}

	m.emit(Change{Kind: ChangeColumnRetitled, ColumnID: col.ID})
	return nil
}

// SetNoteText replaces the text of an existing note. The note id is never
// altered.
func (m *Model) SetNoteText(note NoteHandle, text string) error {
	m.mu.Lock()
	noteMap, err := m.findNoteLocked(note.ColumnID, note.NoteID)
	if err == nil {
		err = noteMap.Set(textKey, text)
	}
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("board.SetNoteText: %w", err)
	}

	m.emit(Change{Kind: ChangeNoteEdited, ColumnID: note.ColumnID, NoteID: note.NoteID})
	return nil
}

// Len returns the number of columns, including ones applied from remote
// participants.
func (m *Model) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cols, err := m.columnsLocked()
	if err != nil || cols == nil {
		return 0
	}
	return cols.Len()
}

// NotesLen returns the number of notes in a column, or 0 when the column
// does not exist.
func (m *Model) NotesLen(col ColumnHandle) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	colMap, err := m.findColumnLocked(col.ID)
	if err != nil {
		return 0
	}
	notes, err := mapList(colMap, notesKey)
	if err != nil || notes == nil {
		return 0
	}
	return notes.Len()
}

// ReadAll returns a point-in-time deep copy of the full board state, in
// insertion order. The result is plain data, detached from the document.
func (m *Model) ReadAll() ([]domain.Column, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readAllLocked()
}

// ApplySnapshot populates an empty board from persisted columns, preserving
// order and persisted ids. The emptiness re-check happens under the model
// lock, so two concurrent hydration attempts can never both insert: the
// loser gets domain.ErrNotEmpty.
func (m *Model) ApplySnapshot(cols []domain.Column) error {
	m.mu.Lock()
	existing, err := m.columnsLocked()
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("board.ApplySnapshot: %w", err)
	}
	if existing != nil && existing.Len() > 0 {
		m.mu.Unlock()
		return fmt.Errorf("board.ApplySnapshot: %w", domain.ErrNotEmpty)
	}

	list := m.doc.Path(columnsKey).List()
	for _, c := range cols {
		notes := make([]any, 0, len(c.Notes))
		for _, n := range c.Notes {
			notes = append(notes, map[string]any{idKey: n.ID, textKey: n.Text})
		}
		if err := list.Append(map[string]any{idKey: c.ID, titleKey: c.Title, notesKey: notes}); err != nil {
			m.mu.Unlock()
			return fmt.Errorf("board.ApplySnapshot: %w", err)
		}
	}
	m.mu.Unlock()

	m.emit(Change{Kind: ChangeSnapshotApplied})
	return nil
}

// Subscribe returns a channel of change notifications and a cancel function.
// Cancel must be called when the subscriber is done; it is safe to call more
// than once.
func (m *Model) Subscribe() (<-chan Change, func()) {
	ch := make(chan Change, subscriberBuffer)

	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			// Close under subMu so emit can never send on a closed channel.
			m.subMu.Lock()
			delete(m.subs, id)
			close(ch)
			m.subMu.Unlock()
		})
	}
	return ch, cancel
}

// NewSyncState creates a fresh sync state for one peer connection.
func (m *Model) NewSyncState() *automerge.SyncState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return automerge.NewSyncState(m.doc)
}

// ReceiveSyncMessage applies one sync message from a peer. It reports whether
// the document actually changed; when it did, a remote Change is emitted so
// observers (persister, other peers' write loops) pick the edit up.
func (m *Model) ReceiveSyncMessage(ss *automerge.SyncState, data []byte) (bool, error) {
	m.mu.Lock()
	before := m.doc.Heads()
	_, err := ss.ReceiveMessage(data)
	after := m.doc.Heads()
	m.mu.Unlock()
	if err != nil {
		return false, fmt.Errorf("board.ReceiveSyncMessage: %w", err)
	}

	changed := !headsEqual(before, after)
	if changed {
		m.emit(Change{Kind: ChangeRemoteApplied})
	}
	return changed, nil
}

// GenerateSyncMessages drains all pending sync messages for one peer.
// Returns nil when the peer is already up to date.
func (m *Model) GenerateSyncMessages(ss *automerge.SyncState) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out [][]byte
	for {
		msg, valid := ss.GenerateMessage()
		if !valid {
			break
		}
		out = append(out, msg.Bytes())
	}
	return out
}

// ---------------------------------------------------------------------------
// internals
// ---------------------------------------------------------------------------

// columnsLocked returns the column list, or nil when the board has never
// been written to. Callers must hold m.mu.
func (m *Model) columnsLocked() (*automerge.List, error) {
	v, err := m.doc.RootMap().Get(columnsKey)
	if err != nil {
		return nil, err
	}
	if v.Kind() != automerge.KindList {
		return nil, nil
	}
	return v.List(), nil
}

func (m *Model) findColumnLocked(columnID string) (*automerge.Map, error) {
	cols, err := m.columnsLocked()
	if err != nil {
		return nil, err
	}
	if cols == nil {
		return nil, fmt.Errorf("column %s: %w", columnID, domain.ErrNotFound)
	}
	for i := 0; i < cols.Len(); i++ {
		v, err := cols.Get(i)
		if err != nil {
			return nil, err
		}
		if v.Kind() != automerge.KindMap {
			continue
		}
		colMap := v.Map()
		id, err := automerge.As[string](colMap.Get(idKey))
		if err != nil {
			return nil, err
		}
		if id == columnID {
			return colMap, nil
		}
	}
	return nil, fmt.Errorf("column %s: %w", columnID, domain.ErrNotFound)
}

func (m *Model) findNoteLocked(columnID, noteID string) (*automerge.Map, error) {
	colMap, err := m.findColumnLocked(columnID)
	if err != nil {
		return nil, err
	}
	notes, err := mapList(colMap, notesKey)
	if err != nil {
		return nil, err
	}
	if notes == nil {
		return nil, fmt.Errorf("note %s: %w", noteID, domain.ErrNotFound)
	}
	for i := 0; i < notes.Len(); i++ {
		v, err := notes.Get(i)
		if err != nil {
			return nil, err
		}
		if v.Kind() != automerge.KindMap {
			continue
		}
		noteMap := v.Map()
		id, err := automerge.As[string](noteMap.Get(idKey))
		if err != nil {
			return nil, err
		}
		if id == noteID {
			return noteMap, nil
		}
	}
	return nil, fmt.Errorf("note %s: %w", noteID, domain.ErrNotFound)
}

func (m *Model) appendNoteLocked(columnID, noteID, text string) error {
	colMap, err := m.findColumnLocked(columnID)
	if err != nil {
		return err
	}
	notes, err := mapList(colMap, notesKey)
	if err != nil {
		return err
	}
	if notes == nil {
		return fmt.Errorf("column %s has no note list: %w", columnID, domain.ErrNotFound)
	}
	return notes.Append(map[string]any{idKey: noteID, textKey: text})
}

func (m *Model) readAllLocked() ([]domain.Column, error) {
	cols, err := m.columnsLocked()
	if err != nil {
		return nil, fmt.Errorf("board.ReadAll: %w", err)
	}
	out := make([]domain.Column, 0)
	if cols == nil {
		return out, nil
	}

	for i := 0; i < cols.Len(); i++ {
		v, err := cols.Get(i)
		if err != nil {
			return nil, fmt.Errorf("board.ReadAll: column %d: %w", i, err)
		}
		if v.Kind() != automerge.KindMap {
			continue
		}
		colMap := v.Map()

		id, err := automerge.As[string](colMap.Get(idKey))
		if err != nil {
			return nil, fmt.Errorf("board.ReadAll: column %d id: %w", i, err)
		}
		title, err := automerge.As[string](colMap.Get(titleKey))
		if err != nil {
			return nil, fmt.Errorf("board.ReadAll: column %d title: %w", i, err)
		}

		col := domain.Column{ID: id, Title: title, Notes: make([]domain.Note, 0)}

		notes, err := mapList(colMap, notesKey)
		if err != nil {
			return nil, fmt.Errorf("board.ReadAll: column %d notes: %w", i, err)
		}
		if notes != nil {
			for j := 0; j < notes.Len(); j++ {
				nv, err := notes.Get(j)
				if err != nil {
					return nil, fmt.Errorf("board.ReadAll: note %d/%d: %w", i, j, err)
				}
				if nv.Kind() != automerge.KindMap {
					continue
				}
				noteMap := nv.Map()
				nid, err := automerge.As[string](noteMap.Get(idKey))
				if err != nil {
					return nil, fmt.Errorf("board.ReadAll: note %d/%d id: %w", i, j, err)
				}
				text, err := automerge.As[string](noteMap.Get(textKey))
				if err != nil {
					return nil, fmt.Errorf("board.ReadAll: note %d/%d text: %w", i, j, err)
				}
				col.Notes = append(col.Notes, domain.Note{ID: nid, Text: text})
			}
		}

		out = append(out, col)
	}
	return out, nil
}

// emit fans a change out to all subscribers without blocking. A subscriber
// whose buffer is full already has signals queued that cover this mutation.
func (m *Model) emit(c Change) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- c:
		default:
		}
	}
}

func mapList(parent *automerge.Map, key string) (*automerge.List, error) {
	v, err := parent.Get(key)
	if err != nil {
		return nil, err
	}
	if v.Kind() != automerge.KindList {
		return nil, nil
	}
	return v.List(), nil
}

func headsEqual(a, b []automerge.ChangeHash) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].String() != b[i].String() {
			return false
		}
	}
	return true
}
