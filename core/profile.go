package core

// ProfileCompletion is the outcome of a profile completeness probe.
type ProfileCompletion struct {
	IsComplete    bool     `json:"isComplete"`
	MissingFields []string `json:"missingFields"`
}

// ProfileComplete is the permissive result used for complete profiles and
// for probes that failed for unrelated reasons.
func ProfileComplete() ProfileCompletion {
	return ProfileCompletion{IsComplete: true, MissingFields: []string{}}
}

// RequiresProfile reports whether a role has a profile record that gates its
// functional pages.
func RequiresProfile(role RoleName) bool {
	return role == RoleVolunteer || role == RoleOrganization
}
