package userstore

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/dalemusser/soar/internal/app/system/normalize"
	"github.com/dalemusser/soar/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	// ErrDuplicateEmail is returned when another user already has the email.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	// ErrDuplicateUsername is returned when another user already has the username.
	ErrDuplicateUsername = errors.New("a user with this username already exists")
	// ErrDuplicateStudentID is returned when another user already has the student id.
	ErrDuplicateStudentID = errors.New("a user with this student id already exists")

	errMissingID = errors.New("user id is required")
)

// dupErr maps a duplicate-key error to the sentinel for the index it hit.
func dupErr(err error) error {
	if !wafflemongo.IsDup(err) {
		return err
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "uniq_users_usernameci"):
		return ErrDuplicateUsername
	case strings.Contains(msg, "uniq_users_studentid"):
		return ErrDuplicateStudentID
	default:
		return ErrDuplicateEmail
	}
}

// GetByID loads a user by identity UUID. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by case-insensitive email. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UsernameExists reports whether any user has username (case/diacritic-insensitive).
func (s *Store) UsernameExists(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, bson.M{"username_ci": text.Fold(normalize.Username(username))})
}

// StudentIDExists reports whether any user has the student id.
func (s *Store) StudentIDExists(ctx context.Context, studentID string) (bool, error) {
	return s.exists(ctx, bson.M{"student_id": strings.TrimSpace(studentID)})
}

func (s *Store) exists(ctx context.Context, filter bson.M) (bool, error) {
	err := s.c.FindOne(ctx, filter, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	return false, err
}

func prepare(u *models.User) {
	u.Username = normalize.Username(u.Username)
	u.UsernameCI = text.Fold(u.Username)
	u.Email = normalize.Email(u.Email)
	u.FirstName = normalize.Name(u.FirstName)
	u.LastName = normalize.Name(u.LastName)
	u.Course = normalize.Name(u.Course)
	if u.StudentID != nil {
		sid := strings.TrimSpace(*u.StudentID)
		if sid == "" {
			u.StudentID = nil
		} else {
			u.StudentID = &sid
		}
	}
}

// Create inserts a new user after normalizing fields. The caller supplies the
// identity UUID.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	if u.ID == "" {
		return models.User{}, errMissingID
	}
	prepare(&u)
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		return models.User{}, dupErr(err)
	}
	return u, nil
}

// UpsertProfile writes the profile fields of u keyed by u.ID, creating the
// record if needed. Activation, staff and login fields are never touched on an
// existing record; a new record starts with u.IsActive.
func (s *Store) UpsertProfile(ctx context.Context, u models.User) (models.User, error) {
	if u.ID == "" {
		return models.User{}, errMissingID
	}
	prepare(&u)
	now := time.Now().UTC()

	set := bson.M{
		"username":    u.Username,
		"username_ci": u.UsernameCI,
		"email":       u.Email,
		"first_name":  u.FirstName,
		"last_name":   u.LastName,
		"course":      u.Course,
		"updated_at":  now,
	}
	unset := bson.M{}
	if u.StudentID != nil {
		set["student_id"] = *u.StudentID
	} else {
		unset["student_id"] = ""
	}
	if u.YearLevel > 0 {
		set["year_level"] = u.YearLevel
	} else {
		unset["year_level"] = ""
	}

	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"is_active":  u.IsActive,
			"is_staff":   false,
			"created_at": now,
		},
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var out models.User
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": u.ID}, update, opts).Decode(&out); err != nil {
		return models.User{}, dupErr(err)
	}
	return out, nil
}

// MarkLogin activates the user and stamps last_login_at.
func (s *Store) MarkLogin(ctx context.Context, id string, at time.Time) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"is_active":     true,
		"last_login_at": at.UTC(),
		"updated_at":    time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetStaff grants or revokes staff status for the user with email.
func (s *Store) SetStaff(ctx context.Context, email string, staff bool) (*models.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u models.User
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"email": normalize.Email(email)},
		bson.M{"$set": bson.M{"is_staff": staff, "updated_at": time.Now().UTC()}},
		opts,
	).Decode(&u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByIDs loads users by id, keyed by id. Missing ids are simply absent.
func (s *Store) GetByIDs(ctx context.Context, ids []string) (map[string]models.User, error) {
	out := make(map[string]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	return out, cur.Err()
}

// MatchIDs returns the ids among ids whose username, first or last name or
// student id contains q (case-insensitive). An empty q returns ids unchanged.
func (s *Store) MatchIDs(ctx context.Context, ids []string, q string) ([]string, error) {
	q = strings.TrimSpace(q)
	if q == "" || len(ids) == 0 {
		return ids, nil
	}
	rx := ciRegex(q)
	filter := bson.M{
		"_id": bson.M{"$in": ids},
		"$or": []bson.M{
			{"username_ci": bson.M{"$regex": regexp.QuoteMeta(text.Fold(q))}},
			{"first_name": rx},
			{"last_name": rx},
			{"student_id": rx},
		},
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []string
	for cur.Next(ctx) {
		var row struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out = append(out, row.ID)
	}
	return out, cur.Err()
}

func ciRegex(q string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(q), "$options": "i"}
}
