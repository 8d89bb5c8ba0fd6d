package provisioning

import (
	"github.com/oracle/oci-go-sdk/v65/common"
)

// ResolveCredentials resolves OCI API credentials from a profile-based
// configuration file. Both arguments are optional: with neither set the SDK
// default chain applies (~/.oci/config, DEFAULT profile). The resolved
// provider is passed to NewOCIProvisioner explicitly; nothing reads the
// config file mid-operation.
func ResolveCredentials(configFile, profile string) (common.ConfigurationProvider, error) {
	switch {
	case profile != "":
		return common.CustomProfileConfigProvider(configFile, profile), nil
	case configFile != "":
		return common.ConfigurationProviderFromFile(configFile, "")
	default:
		return common.DefaultConfigProvider(), nil
	}
}
