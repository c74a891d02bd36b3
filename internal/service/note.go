package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sre-portfolio/notetrack/internal/model"
	"github.com/sre-portfolio/notetrack/internal/repository"
)

const importedNoteTitle = "Imported Note"

type NoteService struct {
	noteRepo NoteRepository
	tx       Transactor
}

func NewNoteService(noteRepo NoteRepository, tx Transactor) *NoteService {
	return &NoteService{
		noteRepo: noteRepo,
		tx:       tx,
	}
}

// Fetch loads the user's own notes, the notes shared with their email by
// others, and the public notes.
func (s *NoteService) Fetch(ctx context.Context, user *model.User) (*model.NoteCollections, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}

	owned, err := s.noteRepo.ListByOwner(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}

	shared, err := s.noteRepo.ListSharedWith(ctx, user.Email, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list shared notes: %w", err)
	}

	public, err := s.noteRepo.ListPublic(ctx)
	if err != nil {
		return nil, fmt.Errorf("list public notes: %w", err)
	}

	return &model.NoteCollections{
		Notes:       owned,
		SharedNotes: shared,
		PublicNotes: public,
	}, nil
}

func (s *NoteService) Create(ctx context.Context, user *model.User, req model.CreateNoteRequest) (*model.Note, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: note title is required", ErrInvalidInput)
	}

	note := &model.Note{
		Owner:        user.ID,
		CreatorName:  user.Name,
		Title:        req.Title,
		Content:      req.Content,
		Tags:         nonNil(req.Tags),
		Shared:       req.Shared,
		SharedWith:   nonNil(req.SharedWith),
		Likes:        []string{},
		LikedByNames: []string{},
	}

	if err := s.noteRepo.Create(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

func (s *NoteService) Update(ctx context.Context, user *model.User, id string, req model.UpdateNoteRequest) (*model.Note, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}

	note, err := s.ownedNote(ctx, user, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, fmt.Errorf("%w: note title is required", ErrInvalidInput)
		}
		note.Title = *req.Title
	}
	if req.Content != nil {
		note.Content = *req.Content
	}
	if req.Tags != nil {
		note.Tags = nonNil(*req.Tags)
	}
	if req.Shared != nil {
		note.Shared = *req.Shared
	}
	if req.SharedWith != nil {
		note.SharedWith = nonNil(*req.SharedWith)
	}

	if err := s.save(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

func (s *NoteService) Delete(ctx context.Context, user *model.User, id string) error {
	if user == nil {
		return ErrUnauthenticated
	}

	if err := s.noteRepo.Delete(ctx, id, user.ID); err != nil {
		if errors.Is(err, repository.ErrNoteNotFound) {
			return ErrNoteNotFound
		}
		return err
	}
	return nil
}

// Share adds emails to the note's share list and marks it shared. The
// merged list keeps existing entries first and drops duplicates.
func (s *NoteService) Share(ctx context.Context, user *model.User, id string, emails []string) (*model.Note, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}
	if len(emails) == 0 {
		return nil, fmt.Errorf("%w: no recipients", ErrInvalidInput)
	}

	note, err := s.ownedNote(ctx, user, id)
	if err != nil {
		return nil, err
	}

	note.Shared = true
	note.SharedWith = mergeUnique(note.SharedWith, emails)

	if err := s.save(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

// ShareWithAll makes the note public, or private again when share is false.
func (s *NoteService) ShareWithAll(ctx context.Context, user *model.User, id string, share bool) (*model.Note, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}

	note, err := s.ownedNote(ctx, user, id)
	if err != nil {
		return nil, err
	}

	note.Shared = share
	if share {
		note.SharedWith = []string{model.PublicShare}
	} else {
		note.SharedWith = []string{}
	}

	if err := s.save(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

// Like toggles the user's like on a note they can see.
func (s *NoteService) Like(ctx context.Context, user *model.User, id string) (*model.Note, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}

	note, err := s.noteRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNoteNotFound) {
			return nil, ErrNoteNotFound
		}
		return nil, err
	}

	if note.Owner != user.ID && !note.IsPublic() && !note.IsSharedWith(user.Email) {
		return nil, ErrNoteNotFound
	}

	if note.LikedBy(user.ID) {
		note.Likes = without(note.Likes, user.ID)
		note.LikedByNames = without(note.LikedByNames, user.Name)
	} else {
		note.Likes = append(nonNil(note.Likes), user.ID)
		note.LikedByNames = append(nonNil(note.LikedByNames), user.Name)
	}

	if err := s.noteRepo.UpdateLikes(ctx, note.ID, note.Likes, note.LikedByNames); err != nil {
		if errors.Is(err, repository.ErrNoteNotFound) {
			return nil, ErrNoteNotFound
		}
		return nil, err
	}
	return note, nil
}

// Export renders notes as an indented JSON array together with the file
// name the download should use.
func (s *NoteService) Export(notes []model.Note, at time.Time) ([]byte, string, error) {
	if notes == nil {
		notes = []model.Note{}
	}

	data, err := json.MarshalIndent(notes, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("encode notes: %w", err)
	}

	return data, ExportFileName(at), nil
}

func ExportFileName(at time.Time) string {
	return fmt.Sprintf("notes_export_%s.json", at.UTC().Format("2006-01-02"))
}

type importedNote struct {
	Title   interface{} `json:"title"`
	Content interface{} `json:"content"`
	Tags    interface{} `json:"tags"`
}

// Import re-creates every note in a JSON array as a new private note owned
// by the user. Missing or mistyped fields fall back to defaults; identity,
// ownership, sharing and likes from the file are ignored. Either all notes
// are inserted or none.
func (s *NoteService) Import(ctx context.Context, user *model.User, data []byte) ([]model.Note, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: expected an array of notes", ErrInvalidImport)
	}

	notes := make([]model.Note, 0, len(raw))
	for _, item := range raw {
		// Elements that are not objects become notes with default fields.
		var r importedNote
		_ = json.Unmarshal(item, &r)

		notes = append(notes, model.Note{
			Owner:        user.ID,
			CreatorName:  user.Name,
			Title:        stringOr(r.Title, importedNoteTitle),
			Content:      stringOr(r.Content, ""),
			Tags:         stringSlice(r.Tags),
			Shared:       false,
			SharedWith:   []string{},
			Likes:        []string{},
			LikedByNames: []string{},
		})
	}

	if len(notes) == 0 {
		return []model.Note{}, nil
	}

	var created []model.Note
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.noteRepo.CreateMany(ctx, notes)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *NoteService) ownedNote(ctx context.Context, user *model.User, id string) (*model.Note, error) {
	note, err := s.noteRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNoteNotFound) {
			return nil, ErrNoteNotFound
		}
		return nil, err
	}
	if note.Owner != user.ID {
		return nil, ErrNoteNotFound
	}
	return note, nil
}

func (s *NoteService) save(ctx context.Context, note *model.Note) error {
	if err := s.noteRepo.Update(ctx, note); err != nil {
		if errors.Is(err, repository.ErrNoteNotFound) {
			return ErrNoteNotFound
		}
		return err
	}
	return nil
}

func stringOr(v interface{}, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}

func stringSlice(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func mergeUnique(existing, added []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(added))
	merged := make([]string, 0, len(existing)+len(added))
	for _, list := range [][]string{existing, added} {
		for _, v := range list {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			merged = append(merged, v)
		}
	}
	return merged
}

func without(list []string, drop string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != drop {
			out = append(out, v)
		}
	}
	return out
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
