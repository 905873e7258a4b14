package handler

import (
	"encoding/json"

	"drs/internal/cases"
	"drs/internal/status"
	id "drs/pkg/domain"
)

type createCaseRequest struct {
	CaseType string `json:"case_type"`
	Channel  string `json:"channel,omitempty"`
}

type attachDevicesRequest struct {
	Devices []deviceRequest `json:"devices"`
}

type deviceRequest struct {
	Brand     string   `json:"brand"`
	ModelName string   `json:"model_name"`
	Count     int      `json:"count"`
	IMEIs     []string `json:"imeis"`
}

func (r attachDevicesRequest) toDevices() ([]cases.Device, error) {
	out := make([]cases.Device, 0, len(r.Devices))
	for _, d := range r.Devices {
		imeis := make([]id.IMEI, 0, len(d.IMEIs))
		for _, raw := range d.IMEIs {
			imei, err := id.ParseIMEI(raw)
			if err != nil {
				return nil, err
			}
			imeis = append(imeis, imei)
		}
		out = append(out, cases.Device{
			Brand:     d.Brand,
			ModelName: d.ModelName,
			Count:     d.Count,
			IMEIs:     imeis,
		})
	}
	return out, nil
}

type deviceResponse struct {
	Brand     string   `json:"brand"`
	ModelName string   `json:"model_name"`
	Count     int      `json:"count"`
	IMEIs     []string `json:"imeis"`
}

type caseResponse struct {
	TrackingID       string           `json:"tracking_id"`
	CaseType         string           `json:"case_type"`
	Channel          string           `json:"channel"`
	Status           int              `json:"status"`
	StatusName       string           `json:"status_name"`
	ProcessingStatus int              `json:"processing_status"`
	ReportStatus     int              `json:"report_status"`
	ReviewerName     string           `json:"reviewer_name,omitempty"`
	Devices          []deviceResponse `json:"devices,omitempty"`
	Summary          json.RawMessage  `json:"summary,omitempty"`
	Report           string           `json:"report,omitempty"`
	ReportAllowed    bool             `json:"report_allowed"`
}

func toCaseResponse(c *cases.Case) caseResponse {
	resp := caseResponse{
		TrackingID:       c.TrackingID.String(),
		CaseType:         string(c.Type),
		Channel:          string(c.Channel),
		Status:           c.Status,
		ProcessingStatus: c.ProcessingStatus,
		ReportStatus:     c.ReportStatus,
		ReviewerName:     c.ReviewerName,
		Summary:          json.RawMessage(c.Summary),
		Report:           c.Report,
		ReportAllowed:    c.ReportAllowed,
	}
	if name, ok := status.Name(c.Status); ok {
		resp.StatusName = name
	}
	for _, d := range c.Devices {
		imeis := make([]string, 0, len(d.IMEIs))
		for _, imei := range d.IMEIs {
			imeis = append(imeis, string(imei))
		}
		resp.Devices = append(resp.Devices, deviceResponse{
			Brand:     d.Brand,
			ModelName: d.ModelName,
			Count:     d.Count,
			IMEIs:     imeis,
		})
	}
	return resp
}
