// internal/app/store/programs/programstore.go
package programstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dalemusser/soar/internal/app/system/normalize"
	"github.com/dalemusser/soar/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrDuplicateProgram = errors.New("a program with this code already exists")
	// ErrUnknownProgram is wrapped with the offending ids by ExistAll.
	ErrUnknownProgram = errors.New("unknown program")
)

type Store struct {
	c        *mongo.Collection
	counters *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("programs"), counters: db.Collection("counters")}
}

// nextID allocates the next program id from the counters collection.
func (s *Store) nextID(ctx context.Context) (int64, error) {
	var ctr struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": "programs"},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&ctr)
	return ctr.Seq, err
}

func (s *Store) Create(ctx context.Context, code, name string) (models.Program, error) {
	code = strings.TrimSpace(code)
	id, err := s.nextID(ctx)
	if err != nil {
		return models.Program{}, fmt.Errorf("allocate program id: %w", err)
	}
	p := models.Program{
		ID:        id,
		Code:      code,
		CodeCI:    normalize.Fold(code),
		Name:      normalize.Name(name),
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Program{}, ErrDuplicateProgram
		}
		return models.Program{}, err
	}
	return p, nil
}

// List returns all programs ordered by code.
func (s *Store) List(ctx context.Context) ([]models.Program, error) {
	return s.find(ctx, bson.M{})
}

// GetByIDs returns the programs with the given ids, ordered by code.
func (s *Store) GetByIDs(ctx context.Context, ids []int64) ([]models.Program, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Program, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "code_ci", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Program
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ExistAll returns an error wrapping ErrUnknownProgram that names every id
// with no program record.
func (s *Store) ExistAll(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := s.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	have := make(map[int64]bool, len(found))
	for _, p := range found {
		have[p.ID] = true
	}
	var missing []string
	seen := map[int64]bool{}
	for _, id := range ids {
		if !have[id] && !seen[id] {
			seen[id] = true
			missing = append(missing, fmt.Sprint(id))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrUnknownProgram, strings.Join(missing, ", "))
	}
	return nil
}

// MatchCourse returns the ids of programs whose code or name equals course,
// ignoring case and diacritics. A user's free-text course is matched this way
// against private organizations' allowed programs.
func (s *Store) MatchCourse(ctx context.Context, course string) ([]int64, error) {
	key := normalize.Fold(course)
	if key == "" {
		return nil, nil
	}
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for _, p := range all {
		if p.CodeCI == key || normalize.Fold(p.Name) == key {
			ids = append(ids, p.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
