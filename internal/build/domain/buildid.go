package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/smallbiznis/formationdesk/internal/apperr"
)

// Separator splits the container from the internal id. Container names never contain it.
const Separator = ":"

var ErrInvalidBuildIDFormat = apperr.InvalidInput("invalid_build_id_format", "build id must look like container:internalId")

// BuildID addresses an artifact in the blob store as container:internalId.
// A legacy id carries no container until resolved against the conventional one.
type BuildID struct {
	Container  string
	InternalID string
}

// ParseBuildID requires both parts.
func ParseBuildID(raw string) (BuildID, error) {
	container, internalID, ok := strings.Cut(strings.TrimSpace(raw), Separator)
	if !ok {
		return BuildID{}, ErrInvalidBuildIDFormat
	}
	container = strings.TrimSpace(container)
	internalID = strings.TrimSpace(internalID)
	if container == "" || internalID == "" {
		return BuildID{}, ErrInvalidBuildIDFormat
	}
	return BuildID{Container: container, InternalID: internalID}, nil
}

// ResolveBuildID accepts legacy single-segment ids and places them in defaultContainer.
func ResolveBuildID(raw, defaultContainer string) (BuildID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return BuildID{}, ErrInvalidBuildIDFormat
	}
	if !strings.Contains(raw, Separator) {
		if strings.TrimSpace(defaultContainer) == "" {
			return BuildID{}, ErrInvalidBuildIDFormat
		}
		return BuildID{Container: defaultContainer, InternalID: raw}, nil
	}
	return ParseBuildID(raw)
}

// NewBuildID is the validated constructor.
func NewBuildID(container, internalID string) (BuildID, error) {
	if strings.Contains(container, Separator) {
		return BuildID{}, ErrInvalidBuildIDFormat
	}
	return ParseBuildID(container + Separator + internalID)
}

func (b BuildID) IsZero() bool {
	return b.Container == "" && b.InternalID == ""
}

// IsLegacy reports a stored id that never carried a container.
func (b BuildID) IsLegacy() bool {
	return b.Container == "" && b.InternalID != ""
}

// WithDefaultContainer fills the container of a legacy id.
func (b BuildID) WithDefaultContainer(container string) BuildID {
	if b.IsLegacy() {
		b.Container = container
	}
	return b
}

func (b BuildID) String() string {
	if b.Container == "" {
		return b.InternalID
	}
	return b.Container + Separator + b.InternalID
}

// Value stores the composite string, NULL for the zero id.
func (b BuildID) Value() (driver.Value, error) {
	if b.IsZero() {
		return nil, nil
	}
	return b.String(), nil
}

// Scan keeps legacy ids as they were stored.
func (b *BuildID) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*b = BuildID{}
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("build id: unsupported scan type %T", src)
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		*b = BuildID{}
		return nil
	}
	if container, internalID, ok := strings.Cut(raw, Separator); ok {
		*b = BuildID{Container: container, InternalID: internalID}
		return nil
	}
	*b = BuildID{InternalID: raw}
	return nil
}

func (b BuildID) MarshalJSON() ([]byte, error) {
	if b.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(b.String())
}

func (b *BuildID) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return ErrInvalidBuildIDFormat
	}
	if raw == nil {
		*b = BuildID{}
		return nil
	}
	return b.Scan(*raw)
}
