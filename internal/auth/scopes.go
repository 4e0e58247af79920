package auth

// Scopes granted to user tokens and checked by handlers.
const (
	ScopeActivitiesWrite = "activities:write"
	ScopeActivitiesRead  = "activities:read"
	ScopeGoalsWrite      = "goals:write"
	ScopeGoalsRead       = "goals:read"
	ScopeProfileWrite    = "profile:write"
	ScopeProfileRead     = "profile:read"
)

// UserScopes is the scope set issued to a signed-in user.
var UserScopes = []string{
	ScopeActivitiesWrite,
	ScopeActivitiesRead,
	ScopeGoalsWrite,
	ScopeGoalsRead,
	ScopeProfileWrite,
	ScopeProfileRead,
}
