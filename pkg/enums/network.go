package enums

import "fmt"

// Network identifies the mobile carrier a bundle is delivered on.
type Network string

const (
	NetworkMTN        Network = "mtn"
	NetworkTelecel    Network = "telecel"
	NetworkAirtelTigo Network = "at"
)

var validNetworks = []Network{
	NetworkMTN,
	NetworkTelecel,
	NetworkAirtelTigo,
}

// String implements fmt.Stringer.
func (n Network) String() string {
	return string(n)
}

// IsValid reports whether the value is a known Network.
func (n Network) IsValid() bool {
	for _, candidate := range validNetworks {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNetwork converts raw input into a Network.
func ParseNetwork(value string) (Network, error) {
	for _, candidate := range validNetworks {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid network %q", value)
}
