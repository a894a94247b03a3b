package feature

import (
	"fmt"

	"github.com/mongowire/mongowire/conn"
)

// ScramSHA1 returns an error if the given wire version range does not
// support SCRAM-SHA-1.
func ScramSHA1(wire conn.Range) error {
	if wire.Max < 3 {
		return fmt.Errorf("SCRAM-SHA-1 is only supported for wire version 3 or newer")
	}

	return nil
}

// ScramSHA256 returns an error if the given wire version range does not
// support SCRAM-SHA-256.
func ScramSHA256(wire conn.Range) error {
	if wire.Max < 7 {
		return fmt.Errorf("SCRAM-SHA-256 is only supported for wire version 7 or newer")
	}

	return nil
}
