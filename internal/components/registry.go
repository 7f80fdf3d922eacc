package components

import (
	"sort"

	"stackmgr/internal/config"
)

// Kind enumerates the known component kinds. The registry dispatches on the
// enum rather than on raw strings; the name→kind mapping below preserves the
// string contract for config files and the CLI.
type Kind int

const (
	KindDatabase Kind = iota
	KindBroker
	KindRESTService
	KindWebUI
	KindSanity
	KindUsageCollector
)

// Component names as they appear in configuration sections.
const (
	NameDatabase       = config.SectionDatabase
	NameBroker         = config.SectionBroker
	NameRESTService    = config.SectionRESTService
	NameWebUI          = config.SectionWebUI
	NameSanity         = config.SectionSanity
	NameUsageCollector = config.SectionUsageCollector
)

// String returns the component name for the kind.
func (k Kind) String() string {
	switch k {
	case KindDatabase:
		return NameDatabase
	case KindBroker:
		return NameBroker
	case KindRESTService:
		return NameRESTService
	case KindWebUI:
		return NameWebUI
	case KindSanity:
		return NameSanity
	case KindUsageCollector:
		return NameUsageCollector
	default:
		return "unknown"
	}
}

// constructors is the static factory table. Adding a component means adding
// a Kind, a name, and an entry here.
var constructors = map[Kind]func(skip bool) Component{
	KindDatabase:       func(skip bool) Component { return NewDatabase(skip) },
	KindBroker:         func(skip bool) Component { return NewBroker(skip) },
	KindRESTService:    func(skip bool) Component { return NewRESTService(skip) },
	KindWebUI:          func(skip bool) Component { return NewWebUI(skip) },
	KindSanity:         func(skip bool) Component { return NewSanity(skip) },
	KindUsageCollector: func(skip bool) Component { return NewUsageCollector(skip) },
}

var kindByName = map[string]Kind{
	NameDatabase:       KindDatabase,
	NameBroker:         KindBroker,
	NameRESTService:    KindRESTService,
	NameWebUI:          KindWebUI,
	NameSanity:         KindSanity,
	NameUsageCollector: KindUsageCollector,
}

// ServiceComponents maps each service to its ordered component list. The
// order within a list is the installation order inside that service.
var ServiceComponents = map[string][]Kind{
	config.DatabaseService: {KindDatabase},
	config.QueueService:    {KindBroker},
	config.ManagerService:  {KindRESTService, KindWebUI, KindSanity, KindUsageCollector},
}

// ServiceInstallationOrder is the total order across services.
var ServiceInstallationOrder = []string{
	config.DatabaseService,
	config.QueueService,
	config.ManagerService,
}

func serviceOrderIndex(name string) int {
	for i, svc := range ServiceInstallationOrder {
		if svc == name {
			return i
		}
	}
	return -1
}

// New constructs a component by name. Unknown names fail with a
// ConfigurationError.
func New(name string, skip bool) (Component, error) {
	kind, ok := kindByName[name]
	if !ok {
		return nil, config.NewConfigurationError("unknown component: %s", name)
	}
	return constructors[kind](skip), nil
}

// Resolve turns a requested service set into the final ordered component
// sequence: services sorted by the installation order, each service's
// components concatenated in declared order, duplicates removed keeping the
// first occurrence. Unknown service names fail with a ConfigurationError.
func Resolve(services []string) ([]Kind, error) {
	ordered := make([]string, len(services))
	copy(ordered, services)
	for _, svc := range ordered {
		if serviceOrderIndex(svc) < 0 {
			return nil, config.NewConfigurationError("unknown service: %s", svc)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return serviceOrderIndex(ordered[i]) < serviceOrderIndex(ordered[j])
	})

	var kinds []Kind
	seen := map[Kind]bool{}
	for _, svc := range ordered {
		for _, kind := range ServiceComponents[svc] {
			if seen[kind] {
				continue
			}
			seen[kind] = true
			kinds = append(kinds, kind)
		}
	}
	return kinds, nil
}

// Build resolves the configured service set and constructs the component
// instances, deriving each skip_installation flag from its config section.
func Build(store *config.Store) ([]Component, error) {
	kinds, err := Resolve(store.ServicesToInstall())
	if err != nil {
		return nil, err
	}
	comps := make([]Component, 0, len(kinds))
	for _, kind := range kinds {
		skip := store.GetBool(kind.String() + "." + config.KeySkipInstall)
		comp, err := New(kind.String(), skip)
		if err != nil {
			return nil, err
		}
		comps = append(comps, comp)
	}
	return comps, nil
}
