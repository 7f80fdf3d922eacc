package config

// DefaultUserConfigPath is the fixed location of the user-editable override
// file, read at the start of every invocation and rewritten at the end of a
// successful run.
const DefaultUserConfigPath = "/etc/stackmgr/config.yaml"

// Defaults returns the built-in configuration. User overrides are deep-merged
// on top of this mapping by Store.Load.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		KeyServicesToInstall: []interface{}{
			DatabaseService,
			QueueService,
			ManagerService,
		},
		KeyCleanDB:             false,
		KeyUnconfiguredInstall: false,

		SectionManager: map[string]interface{}{
			KeyPrivateIP: "",
			KeyPublicIP:  "",
			"hostname":   "",
			KeySecurity: map[string]interface{}{
				KeyAdminUsername: "admin",
				KeyAdminPassword: "",
				KeySSLEnabled:    true,
			},
		},

		SectionBroker: map[string]interface{}{
			KeySkipInstall:          false,
			"username":              "stackmgr",
			"password":              "",
			"nodename":              "",
			"use_long_name":         false,
			"cookie":                "",
			"join_cluster":          "",
			"cluster_members":       map[string]interface{}{},
			"management_only_local": true,
			"port":                  5671,
			"cert_path":             "/etc/stackmgr/ssl/broker_cert.pem",
			"key_path":              "/etc/stackmgr/ssl/broker_key.pem",
			"ca_path":               "/etc/stackmgr/ssl/broker_ca.pem",
			"sources": []interface{}{
				"erlang",
				"socat",
				"stackmgr-broker",
			},
			"policies": []interface{}{
				map[string]interface{}{
					"name":       "logs_queue_message_policy",
					"expression": "^stackmgr-log$",
					"priority":   100,
					"policy": map[string]interface{}{
						"message-ttl":   1200000,
						"max-length":    1000000,
						"ha-mode":       "all",
						"ha-sync-mode":  "automatic",
						"ha-sync-batch": 50,
					},
				},
				map[string]interface{}{
					"name":       "default_vhost_queue_policy",
					"expression": "^",
					"priority":   1,
					"policy": map[string]interface{}{
						"ha-mode":       "all",
						"ha-sync-mode":  "automatic",
						"ha-sync-batch": 50,
					},
				},
			},
		},

		SectionDatabase: map[string]interface{}{
			KeySkipInstall:             false,
			KeyEnableRemoteConnections: false,
			KeyPostgresPassword:        "",
			KeySSLEnabled:              false,
			"port":                     5432,
			"sources": []interface{}{
				"libxslt",
				"postgresql95-libs",
				"postgresql95",
				"postgresql95-contrib",
				"postgresql95-server",
				"postgresql95-devel",
			},
		},

		SectionDatabaseClient: map[string]interface{}{
			"host":              "localhost",
			"db_name":           "stackmgr_db",
			"username":          "stackmgr",
			"password":          "",
			KeyPostgresPassword: "",
			KeySSLEnabled:       false,
		},

		SectionRESTService: map[string]interface{}{
			KeySkipInstall: false,
			"port":         8100,
			"sources": []interface{}{
				"stackmgr-rest-service",
			},
		},

		SectionWebUI: map[string]interface{}{
			KeySkipInstall: false,
			"port":         443,
			"sources": []interface{}{
				"nginx",
				"stackmgr-webui",
			},
		},

		SectionSanity: map[string]interface{}{
			KeySkipInstall: false,
			"skip_sanity":  false,
			"port":         12774,
		},

		SectionUsageCollector: map[string]interface{}{
			KeySkipInstall:      false,
			"interval_in_hours": 4,
			"sources": []interface{}{
				"stackmgr-usage-collector",
			},
		},

		SectionValidations: map[string]interface{}{
			KeySkipValidations:                             false,
			"supported_distros":                            []interface{}{"centos", "rhel", "rocky"},
			"supported_distro_versions":                    []interface{}{"7", "8", "9"},
			"expected_go_version":                          "go1.25",
			"minimum_required_total_physical_memory_in_mb": 3785,
			"minimum_required_available_disk_space_in_gb":  5,
			"minimum_openssl_version":                      "1.0.2",
		},

		SectionSSLInputs: map[string]interface{}{
			"ca_cert_path":          "",
			"ca_key_path":           "",
			"ca_key_password":       "",
			"internal_cert_path":    "",
			"internal_key_path":     "",
			"internal_ca_path":      "",
			"external_cert_path":    "",
			"external_key_path":     "",
			"external_ca_path":      "",
			"database_cert_path":    "",
			"database_key_path":     "",
			"database_ca_path":      "",
			"db_client_cert_path":   "",
			"db_client_key_path":    "",
			"db_client_ca_path":     "",
			"internal_key_password": "",
		},

		SectionCluster: map[string]interface{}{
			KeyActiveManagerIP: "",
		},

		SectionNetworks: map[string]interface{}{
			"default": "",
		},
	}
}
