// internal/app/store/organizations/organizationstore.go
package organizationstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/soar/internal/app/system/normalize"
	"github.com/dalemusser/soar/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var ErrDuplicateOrganization = errors.New("an organization with this name already exists")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("organizations")}
}

var byName = options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})

func (s *Store) Create(ctx context.Context, org models.Organization) (models.Organization, error) {
	now := time.Now().UTC()
	org.ID = primitive.NewObjectID()
	org.Name = normalize.Name(org.Name)
	org.NameCI = text.Fold(org.Name)
	if org.AllowedProgramIDs == nil {
		org.AllowedProgramIDs = []int64{}
	}
	org.CreatedAt = now
	org.UpdatedAt = now
	_, err := s.c.InsertOne(ctx, org)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Organization{}, ErrDuplicateOrganization
		}
		return models.Organization{}, err
	}
	return org, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Organization, error) {
	var org models.Organization
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&org)
	if err != nil {
		return models.Organization{}, err
	}
	return org, nil
}

// GetByName looks up an organization by case/diacritic-insensitive name.
func (s *Store) GetByName(ctx context.Context, name string) (models.Organization, error) {
	var org models.Organization
	err := s.c.FindOne(ctx, bson.M{"name_ci": normalize.Fold(name)}).Decode(&org)
	if err != nil {
		return models.Organization{}, err
	}
	return org, nil
}

// GetByIDs loads multiple organizations by their ObjectIDs, sorted by name.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Organization, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

// List returns every organization, sorted by name.
func (s *Store) List(ctx context.Context) ([]models.Organization, error) {
	return s.find(ctx, bson.M{})
}

// ListVisible returns public organizations, private organizations admitting
// any of programIDs, and the organizations in memberOf, sorted by name.
func (s *Store) ListVisible(ctx context.Context, programIDs []int64, memberOf []primitive.ObjectID) ([]models.Organization, error) {
	or := bson.A{bson.M{"is_public": true}}
	if len(programIDs) > 0 {
		or = append(or, bson.M{"allowed_program_ids": bson.M{"$in": programIDs}})
	}
	if len(memberOf) > 0 {
		or = append(or, bson.M{"_id": bson.M{"$in": memberOf}})
	}
	return s.find(ctx, bson.M{"$or": or})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Organization, error) {
	cur, err := s.c.Find(ctx, filter, byName)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var orgs []models.Organization
	if err := cur.All(ctx, &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

// ProfileUpdate holds the editable fields of an organization. All fields are
// written; AllowedProgramIDs replaces the stored set.
type ProfileUpdate struct {
	Name              string
	Description       string
	IsPublic          bool
	AllowedProgramIDs []int64
}

// UpdateProfile overwrites the editable fields and returns the updated document.
// Returns mongo.ErrNoDocuments if id does not exist.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) (models.Organization, error) {
	name := normalize.Name(upd.Name)
	programs := upd.AllowedProgramIDs
	if programs == nil {
		programs = []int64{}
	}
	set := bson.M{
		"name":                name,
		"name_ci":             text.Fold(name),
		"description":         upd.Description,
		"is_public":           upd.IsPublic,
		"allowed_program_ids": programs,
		"updated_at":          time.Now().UTC(),
	}

	var org models.Organization
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&org)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Organization{}, ErrDuplicateOrganization
		}
		return models.Organization{}, err
	}
	return org, nil
}

// SetAdviser sets or, with an empty userID, clears the adviser.
func (s *Store) SetAdviser(ctx context.Context, id primitive.ObjectID, userID string) error {
	update := bson.M{"$set": bson.M{"adviser_id": userID, "updated_at": time.Now().UTC()}}
	if userID == "" {
		update = bson.M{
			"$unset": bson.M{"adviser_id": ""},
			"$set":   bson.M{"updated_at": time.Now().UTC()},
		}
	}
	res, err := s.c.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// NameExistsForOther checks if an organization with the given name exists, excluding the specified ID.
func (s *Store) NameExistsForOther(ctx context.Context, name string, excludeID primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{
		"name_ci": normalize.Fold(name),
		"_id":     bson.M{"$ne": excludeID},
	}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
