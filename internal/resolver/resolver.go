// Package resolver checks exercise references in generated training programs
// against the acting coach's exercise library.
//
// References are only ever reported, never rewritten: an unknown id stays in
// the program exactly as the model emitted it, and the caller decides whether
// to fix or drop it before committing.
package resolver

import (
	"context"
	"fmt"
	"sort"

	"github.com/coachkit/coachplane/internal/store"
	"github.com/coachkit/coachplane/pkg/models"
)

// Library is a coach's exercise library indexed by id.
type Library map[string]models.ExerciseLibraryEntry

// NewLibrary indexes entries by id.
func NewLibrary(entries []models.ExerciseLibraryEntry) Library {
	lib := make(Library, len(entries))
	for _, e := range entries {
		lib[e.ID] = e
	}
	return lib
}

// Has reports whether id is in the library.
func (l Library) Has(id string) bool {
	_, ok := l[id]
	return ok
}

// Entries returns the library sorted by name, for prompt rendering.
func (l Library) Entries() []models.ExerciseLibraryEntry {
	out := make([]models.ExerciseLibraryEntry, 0, len(l))
	for _, e := range l {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Resolver loads libraries from the store.
type Resolver struct {
	store store.ExerciseStore
}

// NewResolver creates a new exercise reference resolver.
func NewResolver(s store.ExerciseStore) *Resolver {
	return &Resolver{store: s}
}

// Library loads the exercise library owned by coachID.
func (r *Resolver) Library(ctx context.Context, coachID string) (Library, error) {
	entries, err := r.store.ListExercises(ctx, coachID)
	if err != nil {
		return nil, fmt.Errorf("list exercises for coach %s: %w", coachID, err)
	}
	return NewLibrary(entries), nil
}

// ResolveExercises returns one warning per exercise occurrence whose id is
// not in lib. Known ids never produce a warning.
func ResolveExercises(p *models.TrainingProgram, lib Library) []string {
	var warnings []string
	walk(p, func(block, day string, ex models.ProgramExercise) {
		if lib.Has(ex.ExerciseID) {
			return
		}
		if ex.ExerciseID == "" {
			warnings = append(warnings, fmt.Sprintf(
				"Oefening %q in blok %q, dag %q heeft geen id uit de oefeningenbibliotheek",
				ex.ExerciseName, block, day))
			return
		}
		warnings = append(warnings, fmt.Sprintf(
			"Oefening-id %q (%s) in blok %q, dag %q staat niet in de oefeningenbibliotheek",
			ex.ExerciseID, ex.ExerciseName, block, day))
	})
	return warnings
}

// Unresolved returns the distinct ids not found in lib, in order of first
// appearance. An exercise without id is reported as "".
func Unresolved(p *models.TrainingProgram, lib Library) []string {
	seen := make(map[string]bool)
	var ids []string
	walk(p, func(_, _ string, ex models.ProgramExercise) {
		if lib.Has(ex.ExerciseID) || seen[ex.ExerciseID] {
			return
		}
		seen[ex.ExerciseID] = true
		ids = append(ids, ex.ExerciseID)
	})
	return ids
}

func walk(p *models.TrainingProgram, fn func(block, day string, ex models.ProgramExercise)) {
	if p == nil {
		return
	}
	for _, b := range p.Blocks {
		for _, d := range b.Days {
			for _, ex := range d.Exercises {
				fn(b.Name, d.Name, ex)
			}
		}
	}
}
