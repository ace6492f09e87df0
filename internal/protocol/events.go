package protocol

// Event tags carried in the single-key event object of an Envelope.
// The server's internal representation evolves independently of this
// client; tags not listed here are skipped, never fatal.

// Prospecting and mining.
const (
	TagAsteroidDiscovered = "AsteroidDiscovered"
	TagScanSiteSpawned    = "ScanSiteSpawned"
	TagScanResult         = "ScanResult"
	TagCompositionMapped  = "CompositionMapped"
	TagOreMined           = "OreMined"
	TagOreDeposited       = "OreDeposited"
)

// Station economy.
const (
	TagItemImported   = "ItemImported"
	TagItemExported   = "ItemExported"
	TagRefineryRan    = "RefineryRan"
	TagAssemblerRan   = "AssemblerRan"
	TagSlagJettisoned = "SlagJettisoned"
)

// Module lifecycle and condition.
const (
	TagModuleInstalled    = "ModuleInstalled"
	TagModuleUninstalled  = "ModuleUninstalled"
	TagModuleToggled      = "ModuleToggled"
	TagModuleThresholdSet = "ModuleThresholdSet"
	TagWearAccumulated    = "WearAccumulated"
	TagModuleAutoDisabled = "ModuleAutoDisabled"
	TagModuleStalled      = "ModuleStalled"
	TagModuleResumed      = "ModuleResumed"
	TagAssemblerCapped    = "AssemblerCapped"
	TagAssemblerUncapped  = "AssemblerUncapped"
	TagMaintenanceRan     = "MaintenanceRan"
	TagPowerStateUpdated  = "PowerStateUpdated"
)

// Labs and research.
const (
	TagLabRan        = "LabRan"
	TagLabStarved    = "LabStarved"
	TagLabResumed    = "LabResumed"
	TagDataGenerated = "DataGenerated"
	TagTechUnlocked  = "TechUnlocked"
)

// Ships and tasks.
const (
	TagShipConstructed  = "ShipConstructed"
	TagShipArrived      = "ShipArrived"
	TagTaskStarted      = "TaskStarted"
	TagTaskCompleted    = "TaskCompleted"
	TagDepositBlocked   = "DepositBlocked"
	TagDepositUnblocked = "DepositUnblocked"
)

// Informational events. These carry no client-visible state change but
// are part of the contract: they must stay registered so new clients do
// not misreport them as unknown tags.
const (
	TagModuleAwaitingTech = "ModuleAwaitingTech"
	TagInsufficientFunds  = "InsufficientFunds"
	TagAlertRaised        = "AlertRaised"
	TagAlertCleared       = "AlertCleared"
	TagResearchRoll       = "ResearchRoll"
	TagPowerConsumed      = "PowerConsumed"
	TagModuleOverheated   = "ModuleOverheated"
	TagModuleCooled       = "ModuleCooled"
)
