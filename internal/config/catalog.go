package config

import (
	"fmt"
	"strings"
)

type Catalog struct {
	CodeAllocator AllocatorStrategy `env:"CODE_ALLOCATOR" envDefault:"sequence"`
	UndoCapacity  int               `env:"UNDO_CAPACITY" envDefault:"20" validate:"gte=1"`

	ImportDefaultMode    string `env:"IMPORT_DEFAULT_MODE" envDefault:"upsert" validate:"oneof=insert upsert"`
	ImportMaxUploadBytes int64  `env:"IMPORT_MAX_UPLOAD_BYTES" envDefault:"20971520" validate:"gt=0"`
}

// AllocatorStrategy selects how new product codes are produced.
type AllocatorStrategy uint8

const (
	AllocatorSequence AllocatorStrategy = iota
	AllocatorScan
)

func (s AllocatorStrategy) String() string {
	return []string{"sequence", "scan"}[s]
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (s *AllocatorStrategy) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "sequence":
		*s = AllocatorSequence
	case "scan":
		*s = AllocatorScan
	default:
		return fmt.Errorf("unknown code allocator: %s", text)
	}
	return nil
}

func (s AllocatorStrategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
