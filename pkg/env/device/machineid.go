package device

import (
	"github.com/denisbrodbeck/machineid"
)

// DefaultDevice is the device ID when the machine ID is unavailable.
const DefaultDevice = "regconsole"

// MachineID derives the device ID from the machine ID. The raw ID is
// hashed so it is never published.
func MachineID() string {
	id, err := machineid.ProtectedID(DefaultDevice)
	if err != nil {
		return DefaultDevice
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}
