// internal/app/features/organizations/update.go
package organizations

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	organizationstore "github.com/dalemusser/soar/internal/app/store/organizations"
	programstore "github.com/dalemusser/soar/internal/app/store/programs"
	"github.com/dalemusser/soar/internal/app/system/htmlsanitize"
	"github.com/dalemusser/soar/internal/app/system/inputval"
	"github.com/dalemusser/soar/internal/domain/models"
)

const (
	maxNameLen        = 255
	maxDescriptionLen = 500
)

// profileInput is an organization profile edit, from the HTML form or the
// JSON API.
type profileInput struct {
	Name        string
	Description string
	IsPublic    bool
	ProgramIDs  []int64
}

// dedupe returns ids without repeats, in first-seen order.
func dedupe(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// check validates in locally. Field names match the JSON keys.
func (in profileInput) check() *inputval.Result {
	res := &inputval.Result{}
	name := strings.TrimSpace(in.Name)
	desc := strings.TrimSpace(in.Description)

	switch {
	case name == "":
		res.Add("org_name", "Organization name is required.")
	case len([]rune(name)) > maxNameLen:
		res.Add("org_name", fmt.Sprintf("Organization name must be at most %d characters.", maxNameLen))
	}
	switch {
	case desc == "", htmlsanitize.TextLength(htmlsanitize.Sanitize(desc)) == 0:
		res.Add("org_about", "Description is required.")
	case htmlsanitize.TextLength(desc) > maxDescriptionLen:
		res.Add("org_about", fmt.Sprintf("Description must be %d characters or fewer.", maxDescriptionLen))
	}
	for _, id := range in.ProgramIDs {
		if id <= 0 {
			res.Add("allowed_programs", "Program ids must be positive numbers.")
			break
		}
	}
	return res
}

// applyProfile validates in and writes it to org. Validation problems come
// back as *inputval.Result, a taken name as errDuplicateName and a missing
// organization as mongo.ErrNoDocuments.
func (h *Handler) applyProfile(ctx context.Context, org models.Organization, in profileInput) (models.Organization, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.ProgramIDs = dedupe(in.ProgramIDs)
	if res := in.check(); res.HasErrors() {
		return org, res
	}

	if err := h.Programs.ExistAll(ctx, in.ProgramIDs); err != nil {
		if errors.Is(err, programstore.ErrUnknownProgram) {
			res := &inputval.Result{}
			res.Add("allowed_programs", "Unknown program ids: "+strings.TrimPrefix(err.Error(), programstore.ErrUnknownProgram.Error()+": ")+".")
			return org, res
		}
		return org, fmt.Errorf("check programs: %w", err)
	}

	exists, err := h.Orgs.NameExistsForOther(ctx, in.Name, org.ID)
	if err != nil {
		return org, fmt.Errorf("check name: %w", err)
	}
	if exists {
		return org, errDuplicateName
	}

	updated, err := h.Orgs.UpdateProfile(ctx, org.ID, organizationstore.ProfileUpdate{
		Name:              in.Name,
		Description:       htmlsanitize.Sanitize(strings.TrimSpace(in.Description)),
		IsPublic:          in.IsPublic,
		AllowedProgramIDs: in.ProgramIDs,
	})
	if errors.Is(err, organizationstore.ErrDuplicateOrganization) {
		return org, errDuplicateName
	}
	return updated, err
}

// errDuplicateName means another organization already has the name.
var errDuplicateName = errors.New("another organization already uses that name")

// changedFields lists the profile fields that differ between before and after,
// for the audit trail.
func changedFields(before, after models.Organization) []string {
	var out []string
	if before.Name != after.Name {
		out = append(out, "name")
	}
	if before.Description != after.Description {
		out = append(out, "description")
	}
	if before.IsPublic != after.IsPublic {
		out = append(out, "is_public")
	}
	a := append([]int64(nil), before.AllowedProgramIDs...)
	b := append([]int64(nil), after.AllowedProgramIDs...)
	sort.Slice(a, func(i, j int) bool { return a[i] < a[j] })
	sort.Slice(b, func(i, j int) bool { return b[i] < b[j] })
	if fmt.Sprint(a) != fmt.Sprint(b) {
		out = append(out, "allowed_programs")
	}
	return out
}
