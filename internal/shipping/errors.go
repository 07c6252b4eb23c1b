package shipping

import "github.com/sokoni-labs/babyshop/internal/domain"

var (
	// ErrUnknownMethod is returned when a shipping method is not in the rate card.
	ErrUnknownMethod = domain.Errorf(domain.EINVALID, "", "Unknown shipping method.")
)
