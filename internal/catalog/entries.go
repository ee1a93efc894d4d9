package catalog

// Display names referenced by the optimizer rules.
const (
	Microsoft365E5 = "Microsoft 365 E5"
	Microsoft365E3 = "Microsoft 365 E3"
	Microsoft365F1 = "Microsoft 365 F1"
	Microsoft365F3 = "Microsoft 365 F3"
	Office365E1    = "Office 365 E1"
	Office365E3    = "Office 365 E3"
	Office365E5    = "Office 365 E5"
	Office365F3    = "Office 365 F3"

	BusinessBasic     = "Microsoft 365 Business Basic"
	BusinessStandard  = "Microsoft 365 Business Standard"
	BusinessPremium   = "Microsoft 365 Business Premium"
	AppsForBusiness   = "Microsoft 365 Apps for business"
	AppsForEnterprise = "Microsoft 365 Apps for enterprise"

	DefenderOffice365P1 = "Defender for Office 365 P1"
	DefenderOffice365P2 = "Defender for Office 365 P2"
	DefenderEndpointP1  = "Defender for Endpoint P1"
	DefenderEndpointP2  = "Defender for Endpoint P2"
	DefenderBusiness    = "Defender for Business"
	DefenderIdentity    = "Defender for Identity"
	DefenderCloudApps   = "Defender for Cloud Apps"
	EMSE3               = "Enterprise Mobility + Security E3"
	EMSE5               = "Enterprise Mobility + Security E5"
	EntraIDP1           = "Entra ID P1"
	EntraIDP2           = "Entra ID P2"
	IntunePlan1         = "Microsoft Intune Plan 1"
	AIPP1               = "Azure Information Protection P1"
	AIPP2               = "Azure Information Protection P2"
	TeamsPhone          = "Teams Phone System"
	AudioConferencing   = "Audio Conferencing"
	E5Security          = "Microsoft 365 E5 Security"
	E5Compliance        = "Microsoft 365 E5 Compliance"
	WindowsE3           = "Windows 10/11 Enterprise E3"
	WindowsE5           = "Windows 10/11 Enterprise E5"

	VisioPlan1   = "Visio Plan 1"
	VisioPlan2   = "Visio Plan 2"
	ProjectPlan1 = "Project Plan 1"
	ProjectPlan3 = "Project Plan 3"
	ProjectPlan5 = "Project Plan 5"
	PowerBIPro   = "Power BI Pro"
	PowerBIPPU   = "Power BI Premium Per User"

	Microsoft365Copilot = "Microsoft 365 Copilot"
	GitHubCopilot       = "GitHub Copilot"

	ExchangePlan1      = "Exchange Online Plan 1"
	ExchangePlan2      = "Exchange Online Plan 2"
	ExchangeKiosk      = "Exchange Online Kiosk"
	ExchangeEssentials = "Exchange Online Essentials"
	SharePointPlan1    = "SharePoint Online Plan 1"
	SharePointPlan2    = "SharePoint Online Plan 2"
	OneDrivePlan1      = "OneDrive for Business P1"
)

// Entry is one product in the catalog table. Aliases are alternate SKU part
// numbers or export labels that resolve to the same product.
type Entry struct {
	Identifier   string   `mapstructure:"identifier" json:"identifier"`
	DisplayName  string   `mapstructure:"display_name" json:"display_name"`
	CostPerMonth float64  `mapstructure:"cost_per_month" json:"cost_per_month"`
	IsSuite      bool     `mapstructure:"is_suite" json:"is_suite"`
	Trial        bool     `mapstructure:"trial" json:"trial"`
	Aliases      []string `mapstructure:"aliases" json:"aliases,omitempty"`
}

func suite(id, name string, cost float64, aliases ...string) Entry {
	return Entry{Identifier: id, DisplayName: name, CostPerMonth: cost, IsSuite: true, Aliases: aliases}
}

func addon(id, name string, cost float64, aliases ...string) Entry {
	return Entry{Identifier: id, DisplayName: name, CostPerMonth: cost, Aliases: aliases}
}

func trial(id, name string, aliases ...string) Entry {
	return Entry{Identifier: id, DisplayName: name, Trial: true, Aliases: aliases}
}

// builtinEntries holds list prices in USD per user per month.
var builtinEntries = []Entry{
	suite("SPE_E5", Microsoft365E5, 57.00),
	suite("SPE_E3", Microsoft365E3, 36.00),
	suite("SPE_F1", Microsoft365F1, 2.25, "M365_F1", "M365_F1_COMM"),
	suite("M365_F3", Microsoft365F3, 8.00, "SPE_F3"),
	suite("STANDARDPACK", Office365E1, 10.00),
	suite("ENTERPRISEPACK", Office365E3, 23.00, "ENTERPRISEWITHSCAL"),
	suite("ENTERPRISEPREMIUM", Office365E5, 38.00),
	suite("DESKLESSPACK", Office365F3, 4.00),
	suite("O365_BUSINESS_ESSENTIALS", BusinessBasic, 6.00, "SMB_BUSINESS_ESSENTIALS"),
	suite("O365_BUSINESS_PREMIUM", BusinessStandard, 12.50, "SMB_BUSINESS_PREMIUM"),
	suite("SPB", BusinessPremium, 22.00),
	suite("O365_BUSINESS", AppsForBusiness, 12.50, "O365_BUSINESS_APPS"),
	suite("OFFICESUBSCRIPTION", AppsForEnterprise, 12.00),

	addon("SPE_F5_SEC", "Microsoft 365 F5 Security", 12.00),
	addon("SPE_F5_COMP", "Microsoft 365 F5 Compliance", 12.00),
	addon("M365_SECURITY_COMPLIANCE_FOR_FLW", "Microsoft 365 F5 Security + Compliance", 12.00),
	addon("ATP_ENTERPRISE", DefenderOffice365P1, 2.00, "ATP_ENTERPRISE_FACULTY"),
	addon("THREAT_INTELLIGENCE", DefenderOffice365P2, 5.00),
	addon("WIN_DEF_ATP", DefenderEndpointP2, 5.20, "MDATP_XPLAT"),
	addon("DEFENDER_ENDPOINT_P1", DefenderEndpointP1, 3.00),
	addon("MDE_SMB", DefenderBusiness, 3.00),
	addon("DEFENDER_IDENTITY", DefenderIdentity, 5.50, "ATA"),
	addon("ADALLOM_STANDALONE", DefenderCloudApps, 3.50),
	addon("EMS_E3", EMSE3, 11.60),
	addon("EMS_E5", EMSE5, 16.40, "EMSPREMIUM"),
	addon("AAD_PREMIUM", EntraIDP1, 6.00),
	addon("AAD_PREMIUM_P2", EntraIDP2, 9.00),
	addon("INTUNE_A", IntunePlan1, 8.00, "INTUNE_SMB"),
	addon("RIGHTSMANAGEMENT", AIPP1, 2.00, "RMS_S_PREMIUM"),
	addon("RMS_S_PREMIUM2", AIPP2, 5.00),
	addon("RIGHTSMANAGEMENT_ADHOC", "Rights Management Adhoc", 0),
	addon("MCOEV", TeamsPhone, 8.00, "MCOEV_GOV"),
	addon("PHONESYSTEM_VIRTUALUSER", "Teams Phone System Virtual User", 0, "MCOEV_VIRTUALUSER"),
	addon("MCOPSTN1", "Domestic Calling Plan", 12.00),
	addon("MCOPSTN2", "International Calling Plan", 24.00),
	addon("MCOPSTN5", "Domestic Calling Plan (120 min)", 0),
	addon("MCOMEETADV", AudioConferencing, 4.00, "MICROSOFT_TEAMS_AUDIO_CONFERENCING_SELECT_DIAL_OUT"),
	addon("MEETING_ROOM", "Teams Rooms Standard", 15.00),
	addon("MTR_PREM", "Teams Rooms Pro", 40.00),
	addon("WACONEDRIVESTANDARD", OneDrivePlan1, 5.00),
	addon("WACONEDRIVEENTERPRISE", "OneDrive for Business P2", 0),
	addon("SHAREPOINTSTANDARD", SharePointPlan1, 5.00),
	addon("SHAREPOINTENTERPRISE", SharePointPlan2, 10.00),
	addon("IDENTITY_THREAT_PROTECTION", E5Security, 12.00, "IDENTITY_THREAT_PROTECTION_FOR_EMS_E5"),
	addon("INFORMATION_PROTECTION_COMPLIANCE", E5Compliance, 12.00),
	addon("VISIOCLIENT", VisioPlan2, 15.00, "VISIO ONLINE PLAN 2"),
	addon("VISIOONLINE_PLAN1", VisioPlan1, 5.00),
	addon("PROJECTPREMIUM", ProjectPlan5, 55.00),
	addon("PROJECTPROFESSIONAL", ProjectPlan3, 30.00),
	addon("PROJECTESSENTIALS", ProjectPlan1, 10.00, "PROJECT_P1"),
	addon("POWER_BI_PRO", PowerBIPro, 10.00),
	addon("PBI_PREMIUM_PER_USER", PowerBIPPU, 20.00, "POWER_BI_PREMIUM_PER_USER"),
	addon("POWER_BI_STANDARD", "Power BI Free", 0),
	addon("POWERAPPS_PER_USER", "Power Apps per user", 20.00),
	addon("POWERAPPS_PER_APP", "Power Apps per app", 5.00),
	addon("POWER_AUTOMATE_PER_USER", "Power Automate per user", 15.00),
	addon("FORMS_PRO", "Dynamics 365 Customer Voice", 0, "CUSTOMER_VOICE"),
	addon("MICROSOFT_365_COPILOT", Microsoft365Copilot, 30.00),
	addon("GITHUB_COPILOT", GitHubCopilot, 20.00),
	addon("EXCHANGESTANDARD", ExchangePlan1, 4.00, "EXCHANGE ONLINE (PLAN 1)"),
	addon("EXCHANGEENTERPRISE", ExchangePlan2, 8.00, "EXCHANGE ONLINE (PLAN 2)"),
	addon("EXCHANGEDESKLESS", ExchangeKiosk, 2.00),
	addon("EXCHANGE_S_ESSENTIALS", ExchangeEssentials, 2.00),
	addon("EOP_ENTERPRISE", "Exchange Online Protection", 0),
	addon("WIN10_PRO_ENT_SUB", WindowsE3, 7.00),
	addon("WIN10_VDA_E5", WindowsE5, 11.00),
	addon("WINDOWS_STORE", "Windows Store for Business", 0),
	addon("CRMSTANDARD", "Dynamics 365 Sales Professional", 65.00),
	addon("CRMENTERPRISE", "Dynamics 365 Sales Enterprise", 95.00),
	addon("DYN365_ENTERPRISE_PLAN1", "Dynamics 365 Plan", 115.00),
	addon("DYN365_TEAM_MEMBERS", "Dynamics 365 Team Members", 8.00),
	addon("MICROSOFT_COMMUNICATION_COMPLIANCE", "Communication Compliance", 0),
	addon("POWER_AUTOMATE_ATTENDED_RPA", "Power Automate RPA Attended", 0),
	addon("WINDOWS_AUTOPATCH", "Windows Autopatch", 0),

	trial("TEAMS_EXPLORATORY", "Teams Exploratory"),
	trial("TEAMS_FREE", "Microsoft Teams (Free)"),
	trial("FLOW_FREE", "Power Automate Free"),
	trial("POWERAPPS_VIRAL", "Power Apps Trial"),
	trial("STREAM", "Microsoft Stream", "STREAM_O365_E5"),
	trial("CCIBOTS_PRIVPREV_VIRAL", "Power Virtual Agents Trial"),
	trial("MCO_TEAMS_IW", "Microsoft Teams Trial"),
	trial("CLIPCHAMP", "Microsoft Clipchamp"),
}

// Builtin returns a copy of the built-in catalog table.
func Builtin() []Entry {
	out := make([]Entry, len(builtinEntries))
	for i, e := range builtinEntries {
		e.Aliases = append([]string(nil), e.Aliases...)
		out[i] = e
	}
	return out
}
