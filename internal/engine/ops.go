package engine

// Engine call names. They appear in StatusError.Op, in lifecycle logs and
// in the simulator call log, and match the ESP-IDF functions they model.
const (
	OpNetifInit           = "esp_netif_init"
	OpCreateMeshNetifs    = "esp_netif_create_default_wifi_mesh_netifs"
	OpDestroyNetif        = "esp_netif_destroy_default_wifi"
	OpWifiInit            = "esp_wifi_init"
	OpWifiSetStorage      = "esp_wifi_set_storage"
	OpWifiStart           = "esp_wifi_start"
	OpWifiStop            = "esp_wifi_stop"
	OpWifiDeinit          = "esp_wifi_deinit"
	OpMeshInit            = "esp_mesh_init"
	OpMeshDeinit          = "esp_mesh_deinit"
	OpMeshStart           = "esp_mesh_start"
	OpMeshStop            = "esp_mesh_stop"
	OpRegisterHandler     = "esp_event_handler_register"
	OpUnregisterHandler   = "esp_event_handler_unregister"
	OpSetTopology         = "esp_mesh_set_topology"
	OpSetMaxLayer         = "esp_mesh_set_max_layer"
	OpSetVotePercentage   = "esp_mesh_set_vote_percentage"
	OpSetXonQsize         = "esp_mesh_set_xon_qsize"
	OpEnablePS            = "esp_mesh_enable_ps"
	OpDisablePS           = "esp_mesh_disable_ps"
	OpSetAPAssocExpire    = "esp_mesh_set_ap_assoc_expire"
	OpSetAnnounceInterval = "esp_mesh_set_announce_interval"
	OpSetActiveDutyCycle  = "esp_mesh_set_active_duty_cycle"
	OpSetNetworkDutyCycle = "esp_mesh_set_network_duty_cycle"
	OpSetAPAuthMode       = "esp_mesh_set_ap_authmode"
	OpSetConfig           = "esp_mesh_set_config"
)
