package config

// Persisted setting names.
const (
	FieldAppName             = "APP_NAME"
	FieldClientConfigPath    = "CLIENT_CONFIG_PATH"
	FieldClientConfigPackage = "CLIENT_CONFIG_PACKAGE"
	FieldCompanyName         = "COMPANY_NAME"
	FieldPluginConfigs       = "PLUGIN_CONFIGS"
	FieldUpdatePatches       = "UPDATE_PATCHES"
	FieldMaxDownloadRetries  = "MAX_DOWNLOAD_RETRIES"
	FieldUpdateURLs          = "UPDATE_URLS"
	FieldPublicKey           = "PUBLIC_KEY"
	FieldDataDir             = "DATA_DIR"
)

const (
	// GenericAppName is used for the application and company name until the
	// repository owner sets them.
	GenericAppName = "Go Updater App"

	// DefaultClientConfigFile is written relative to the working directory.
	DefaultClientConfigFile = "client_config.go"

	// DefaultClientConfigPackage is the package clause of the client config.
	DefaultClientConfigPackage = "clientconfig"

	// DefaultMaxDownloadRetries bounds download attempts in the client.
	DefaultMaxDownloadRetries = 3
)

// Defaults returns settings holding the default template.
func Defaults() *Settings {
	return &Settings{
		AppName:             GenericAppName,
		ClientConfigPath:    []string{DefaultClientConfigFile},
		ClientConfigPackage: DefaultClientConfigPackage,
		CompanyName:         GenericAppName,
		PluginConfigs:       map[string]any{},
		UpdatePatches:       true,
		MaxDownloadRetries:  DefaultMaxDownloadRetries,
		Extra:               map[string]any{},
		unset:               map[string]bool{
			FieldUpdateURLs: true,
			FieldPublicKey:  true,
			FieldDataDir:    true,
		},
	}
}
