package engine

import c "github.com/smallbiznis/seatwise/internal/catalog"

const (
	// upgradeTrigger is the mailbox utilization above which a user counts
	// as underprovisioned.
	upgradeTrigger = 50.0
	// powerUserTrigger is the utilization above which an allowlisted user
	// receives an AI assistant.
	powerUserTrigger = 50.0
)

// tierMove is one rung of a license ladder.
type tierMove struct {
	from, to string
	// detail names the capability gained or given up.
	detail string
}

var underprovisionedMoves = []tierMove{
	{c.Office365E1, c.Microsoft365E3, "desktop Office apps, Intune device management, Entra ID P1 conditional access and Defender for Endpoint P1"},
}

var basicToStandardMoves = []tierMove{
	{c.BusinessBasic, c.BusinessStandard, "desktop Office apps, webinar hosting and attendee registration"},
}

var topTierMoves = []tierMove{
	{c.Microsoft365E3, c.Microsoft365E5, "Defender for Office 365 P2 threat hunting, eDiscovery Premium, Entra ID P2 risk-based access and Power BI Pro"},
	{c.Office365E3, c.Office365E5, "Defender for Office 365 P2 threat hunting, eDiscovery Premium and Teams Phone"},
}

var premiumMoves = []tierMove{
	{c.BusinessStandard, c.BusinessPremium, "Intune device management, Defender for Business and Entra ID P1 conditional access"},
}

var topTierDowngrades = []tierMove{
	{c.Microsoft365E5, c.Microsoft365E3, "advanced threat protection, eDiscovery Premium and Entra ID P2"},
	{c.Office365E5, c.Office365E3, "advanced threat protection, eDiscovery Premium and Teams Phone"},
}

var midTierDowngrades = []tierMove{
	{c.Microsoft365E3, c.Office365E1, "desktop Office apps, Intune device management and Windows Enterprise"},
	{c.Office365E3, c.Office365E1, "desktop Office apps and the 100 GB mailbox"},
}

var premiumDowngrades = []tierMove{
	{c.BusinessPremium, c.BusinessStandard, "Intune device management, Defender for Business and conditional access"},
}

var standardToBasicDowngrades = []tierMove{
	{c.BusinessStandard, c.BusinessBasic, "desktop Office apps and webinar hosting"},
}

var (
	diagramDepartments   = []string{"Design", "Engineering", "PMO", "Architecture", "Project Management"}
	projectDepartments   = []string{"PMO", "IT", "Engineering", "Project Management"}
	analyticsDepartments = []string{"Analytics", "Finance", "Data", "Business Intelligence"}
	powerUserDepartments = []string{"Engineering", "IT", "Design", "Analytics"}
)

var (
	diagramAddons = []string{c.VisioPlan1, c.VisioPlan2}
	projectAddons = []string{c.ProjectPlan1, c.ProjectPlan3, c.ProjectPlan5}
	aiAssistants  = []string{c.Microsoft365Copilot, c.GitHubCopilot}
)

// coverage lists, per add-on, the licenses that already include its
// capability. Coverers are listed from broadest to narrowest.
type coverage struct {
	addon    string
	coverers []string
}

var redundantAddons = []coverage{
	{c.E5Security, []string{c.Microsoft365E5}},
	{c.E5Compliance, []string{c.Microsoft365E5}},
	{c.EMSE5, []string{c.Microsoft365E5}},
	{c.EMSE3, []string{c.Microsoft365E5, c.Microsoft365E3, c.EMSE5}},
	{c.WindowsE5, []string{c.Microsoft365E5}},
	{c.WindowsE3, []string{c.Microsoft365E5, c.Microsoft365E3, c.WindowsE5}},
	{c.DefenderEndpointP2, []string{c.Microsoft365E5, c.E5Security, c.WindowsE5}},
	{c.DefenderEndpointP1, []string{c.Microsoft365E5, c.Microsoft365E3, c.E5Security, c.WindowsE5, c.DefenderEndpointP2}},
	{c.DefenderBusiness, []string{c.BusinessPremium}},
	{c.DefenderOffice365P2, []string{c.Microsoft365E5, c.Office365E5, c.E5Security}},
	{c.DefenderOffice365P1, []string{c.Microsoft365E5, c.Office365E5, c.E5Security, c.BusinessPremium, c.DefenderOffice365P2}},
	{c.DefenderIdentity, []string{c.Microsoft365E5, c.E5Security, c.EMSE5}},
	{c.DefenderCloudApps, []string{c.Microsoft365E5, c.E5Security, c.EMSE5}},
	{c.EntraIDP2, []string{c.Microsoft365E5, c.E5Security, c.EMSE5}},
	{c.EntraIDP1, []string{c.Microsoft365E5, c.Microsoft365E3, c.BusinessPremium, c.EMSE5, c.EMSE3, c.EntraIDP2}},
	{c.IntunePlan1, []string{c.Microsoft365E5, c.Microsoft365E3, c.BusinessPremium, c.EMSE5, c.EMSE3}},
	{c.AIPP2, []string{c.Microsoft365E5, c.E5Compliance, c.EMSE5}},
	{c.AIPP1, []string{c.Microsoft365E5, c.Microsoft365E3, c.BusinessPremium, c.EMSE5, c.EMSE3, c.AIPP2}},
	{c.TeamsPhone, []string{c.Microsoft365E5, c.Office365E5}},
	{c.AudioConferencing, []string{c.Microsoft365E5, c.Office365E5}},
	{c.PowerBIPro, []string{c.Microsoft365E5, c.Office365E5, c.PowerBIPPU}},
}

var mailSuites = []string{
	c.Microsoft365E5, c.Microsoft365E3, c.Office365E5, c.Office365E3, c.Office365E1,
	c.BusinessPremium, c.BusinessStandard, c.BusinessBasic,
}

var largeMailboxSuites = []string{c.Microsoft365E5, c.Microsoft365E3, c.Office365E5, c.Office365E3}

var overlappingServices = []coverage{
	{c.ExchangePlan2, largeMailboxSuites},
	{c.ExchangePlan1, mailSuites},
	{c.ExchangeKiosk, mailSuites},
	{c.ExchangeEssentials, mailSuites},
	{c.SharePointPlan2, largeMailboxSuites},
	{c.SharePointPlan1, mailSuites},
	{c.OneDrivePlan1, mailSuites},
}

// containedSuites lists, per suite, the lesser suites it fully contains.
var containedSuites = []coverage{
	{c.Microsoft365E5, []string{c.Microsoft365E3, c.Office365E5, c.Office365E3, c.Office365E1, c.AppsForEnterprise, c.Microsoft365F3, c.Microsoft365F1, c.Office365F3}},
	{c.Microsoft365E3, []string{c.Office365E3, c.Office365E1, c.AppsForEnterprise, c.Microsoft365F3, c.Microsoft365F1, c.Office365F3}},
	{c.Office365E5, []string{c.Office365E3, c.Office365E1, c.Office365F3}},
	{c.Office365E3, []string{c.Office365E1, c.AppsForEnterprise, c.Office365F3}},
	{c.BusinessPremium, []string{c.BusinessStandard, c.BusinessBasic, c.AppsForBusiness}},
	{c.BusinessStandard, []string{c.BusinessBasic, c.AppsForBusiness}},
}
