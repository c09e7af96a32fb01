// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/soar/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isUnsupported(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("users", usersSchema())
	ensure("organizations", orgsSchema())
	ensure("programs", programsSchema())
	ensure("organization_members", orgMembersSchema())
	ensure("counters", nil)
	ensure("audit_events", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string) error {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err == nil && len(names) > 0 {
		return nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		if isNamespaceExistsErr(err) {
			return nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	if err := db.RunCommand(ctx, cmd).Err(); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

func commandMatches(err error, codes []int32, phrases ...string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		for _, c := range codes {
			if ce.Code == c {
				return true
			}
		}
	}
	s := strings.ToLower(err.Error())
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func isNamespaceExistsErr(err error) bool {
	return commandMatches(err, []int32{48}, "already exists", "namespace exists")
}

// isUnsupported covers "no such command" (59) and "not implemented" (115).
func isUnsupported(err error) bool {
	return commandMatches(err, []int32{59, 115}, "no such command", "not implemented", "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"_id", "email", "username", "username_ci", "is_active", "is_staff"},
			"properties": bson.M{
				"_id":         nonBlank,
				"email":       nonBlank,
				"username":    nonBlank,
				"username_ci": nonBlank,
				"student_id":  bson.M{"bsonType": "string", "pattern": "^[0-9]{2}-[0-9]{4}-[0-9]{3}$"},
				"year_level":  bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1},
				"is_active":   bson.M{"bsonType": "bool"},
				"is_staff":    bson.M{"bsonType": "bool"},
			},
		},
	}
}

func orgsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "name_ci", "description", "is_public"},
			"properties": bson.M{
				"name":                nonBlank,
				"name_ci":             nonBlank,
				"description":         nonBlank,
				"is_public":           bson.M{"bsonType": "bool"},
				"adviser_id":          bson.M{"bsonType": "string"},
				"allowed_program_ids": bson.M{"bsonType": "array", "items": bson.M{"bsonType": bson.A{"int", "long"}}},
			},
		},
	}
}

func programsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"_id", "code", "code_ci", "name"},
			"properties": bson.M{
				"_id":     bson.M{"bsonType": bson.A{"int", "long"}},
				"code":    nonBlank,
				"code_ci": nonBlank,
				"name":    nonBlank,
			},
		},
	}
}

func orgMembersSchema() bson.M {
	roles := bson.A{}
	for _, r := range models.AllRoles {
		roles = append(roles, r.String())
	}
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"org_id", "user_id", "role", "is_approved"},
			"properties": bson.M{
				"org_id":      bson.M{"bsonType": "objectId"},
				"user_id":     nonBlank,
				"role":        bson.M{"enum": roles},
				"is_approved": bson.M{"bsonType": "bool"},
			},
		},
	}
}
