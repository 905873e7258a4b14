// Package gsma looks up device model metadata by TAC from the core service,
// with a Redis cache in front since TAC records change rarely.
package gsma

// Device is the GSMA model record for one TAC. Field names follow the core
// service's wire format.
type Device struct {
	ModelName           string `json:"model_name"`
	SIMSlot             string `json:"simslot"`
	IMEIQuantitySupport string `json:"imeiquantitysupport"`
	NonRemovableEUICC   string `json:"nonremovable_euicc"`
	NonRemovableUICC    string `json:"nonremovable_uicc"`
	RemovableEUICC      string `json:"removable_euicc"`
	RemovableUICC       string `json:"removable_uicc"`
	BrandName           string `json:"brand_name"`
	OperatingSystem     string `json:"operating_system"`
	MarketingName       string `json:"marketing_name"`
}

type tacResponse struct {
	GSMA *Device `json:"gsma"`
}
