package config

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// ByteSize is a byte count that reads human-readable sizes ("10MiB", "1GB", "512")
type ByteSize int64

// Binary units used by the defaults
const (
	KiB ByteSize = 1 << 10
	MiB ByteSize = 1 << 20
	GiB ByteSize = 1 << 30
)

// ParseByteSize parses a human-readable size. Note that humanize treats
// "MB" as 1000-based and "MiB" as 1024-based.
func ParseByteSize(s string) (ByteSize, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return ByteSize(n), nil
}

// Bytes returns the size as int64
func (b ByteSize) Bytes() int64 {
	return int64(b)
}

func (b ByteSize) String() string {
	if b <= 0 {
		return strconv.FormatInt(int64(b), 10)
	}
	return humanize.IBytes(uint64(b))
}

// UnmarshalYAML accepts both integers and size strings
func (b *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!int" {
		n, err := strconv.ParseInt(value.Value, 10, 64)
		if err != nil {
			return err
		}
		*b = ByteSize(n)
		return nil
	}
	size, err := ParseByteSize(value.Value)
	if err != nil {
		return err
	}
	*b = size
	return nil
}

// MarshalYAML writes the size in binary units
func (b ByteSize) MarshalYAML() (interface{}, error) {
	return b.String(), nil
}
