package config

// Service names. A service is a named bundle of components installed and
// configured as a unit; the set of services to install is itself a
// configuration value, so the names live here.
const (
	DatabaseService = "database_service"
	QueueService    = "queue_service"
	ManagerService  = "manager_service"
)
