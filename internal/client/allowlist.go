package client

// Paths of the club API used by the client
const (
	PathPhoneVerificationRequest = "/api/auth/phone/request"
	PathPhoneVerificationVerify  = "/api/auth/phone/verify"
	PathTokenRefresh             = "/api/auth/refresh"
	PathMembers                  = "/api/members"
	PathMe                       = "/api/members/me"
)

// DefaultAllowList holds the paths that never carry a bearer token
var DefaultAllowList = []string{
	PathPhoneVerificationRequest,
	PathPhoneVerificationVerify,
	PathTokenRefresh,
	PathMembers,
}

// AllowList is a set of request paths exempt from token attachment.
// Matching is exact on the encoded path.
type AllowList map[string]struct{}

// NewAllowList builds an allow list from paths
func NewAllowList(paths ...string) AllowList {
	list := make(AllowList, len(paths))
	for _, p := range paths {
		list[p] = struct{}{}
	}
	return list
}

// Contains reports whether escapedPath is on the list
func (l AllowList) Contains(escapedPath string) bool {
	_, ok := l[escapedPath]
	return ok
}
