// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/soar/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store manages organization_members, the authoritative user/organization join.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("organization_members")}
}

var (
	ErrDuplicateMembership = errors.New("user is already a member of this organization")
	// ErrStaleRole is returned by SetRole when the membership no longer holds
	// the expected role (or no longer exists).
	ErrStaleRole = errors.New("membership role changed concurrently")
)

// Add creates a membership. Duplicate (org, user) pairs return ErrDuplicateMembership.
func (s *Store) Add(ctx context.Context, orgID primitive.ObjectID, userID string, role models.Role, approved bool) (models.OrganizationMember, error) {
	if !role.Valid() {
		return models.OrganizationMember{}, models.ErrInvalidRole
	}
	now := time.Now().UTC()
	m := models.OrganizationMember{
		ID:         primitive.NewObjectID(),
		OrgID:      orgID,
		UserID:     userID,
		Role:       role,
		IsApproved: approved,
		JoinedAt:   now,
		UpdatedAt:  now,
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.OrganizationMember{}, ErrDuplicateMembership
		}
		return models.OrganizationMember{}, err
	}
	return m, nil
}

// GetByID loads a membership. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.OrganizationMember, error) {
	var m models.OrganizationMember
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Find loads the membership of userID in orgID. Returns mongo.ErrNoDocuments if none.
func (s *Store) Find(ctx context.Context, orgID primitive.ObjectID, userID string) (*models.OrganizationMember, error) {
	var m models.OrganizationMember
	if err := s.c.FindOne(ctx, bson.M{"org_id": orgID, "user_id": userID}).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// SetRole changes the role of membership id from `from` to `to` in one
// guarded update. If the stored role is no longer `from`, nothing is written
// and ErrStaleRole is returned.
func (s *Store) SetRole(ctx context.Context, id primitive.ObjectID, from, to models.Role) error {
	if !to.Valid() {
		return models.ErrInvalidRole
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "role": from.String()},
		bson.M{"$set": bson.M{"role": to.String(), "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrStaleRole
	}
	return nil
}

// Approve marks a pending membership approved. Returns mongo.ErrNoDocuments if id does not exist.
func (s *Store) Approve(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_approved": true, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a membership by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// pendingFirst orders pending requests before approved members, oldest first.
var pendingFirst = options.Find().SetSort(bson.D{
	{Key: "is_approved", Value: 1},
	{Key: "joined_at", Value: 1},
	{Key: "_id", Value: 1},
})

// ListByOrg returns every membership of an organization, pending first.
func (s *Store) ListByOrg(ctx context.Context, orgID primitive.ObjectID) ([]models.OrganizationMember, error) {
	return s.list(ctx, bson.M{"org_id": orgID})
}

// ListByOrgUsers is ListByOrg restricted to userIDs.
func (s *Store) ListByOrgUsers(ctx context.Context, orgID primitive.ObjectID, userIDs []string) ([]models.OrganizationMember, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	return s.list(ctx, bson.M{"org_id": orgID, "user_id": bson.M{"$in": userIDs}})
}

// ListByUser returns every membership held by userID.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]models.OrganizationMember, error) {
	return s.list(ctx, bson.M{"user_id": userID})
}

func (s *Store) list(ctx context.Context, filter bson.M) ([]models.OrganizationMember, error) {
	cur, err := s.c.Find(ctx, filter, pendingFirst)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.OrganizationMember
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RoleCounts summarizes an organization's memberships.
type RoleCounts struct {
	Members  int64
	Officers int64
	Leaders  int64
	Pending  int64
}

// Total returns the number of approved members of any role.
func (c RoleCounts) Total() int64 { return c.Members + c.Officers + c.Leaders }

// CountByRole returns approved members per role plus pending requests.
func (s *Store) CountByRole(ctx context.Context, orgID primitive.ObjectID) (RoleCounts, error) {
	cur, err := s.c.Aggregate(ctx, []bson.M{
		{"$match": bson.M{"org_id": orgID}},
		{"$group": bson.M{
			"_id": bson.M{"role": "$role", "approved": "$is_approved"},
			"n":   bson.M{"$sum": 1},
		}},
	})
	if err != nil {
		return RoleCounts{}, err
	}
	defer cur.Close(ctx)

	var out RoleCounts
	for cur.Next(ctx) {
		var row struct {
			ID struct {
				Role     models.Role `bson:"role"`
				Approved bool        `bson:"approved"`
			} `bson:"_id"`
			N int64 `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return RoleCounts{}, err
		}
		if !row.ID.Approved {
			out.Pending += row.N
			continue
		}
		switch row.ID.Role {
		case models.RoleMember:
			out.Members += row.N
		case models.RoleOfficer:
			out.Officers += row.N
		case models.RoleLeader:
			out.Leaders += row.N
		}
	}
	return out, cur.Err()
}
