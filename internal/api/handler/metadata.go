package handler

import (
	"net/http"

	"github.com/routecast/routecast/internal/api/models"
	"github.com/routecast/routecast/internal/api/response"
	"github.com/routecast/routecast/internal/forecast"
)

// MetadataHandler handles metadata endpoints.
type MetadataHandler struct{}

// NewMetadataHandler creates a new MetadataHandler.
func NewMetadataHandler() *MetadataHandler {
	return &MetadataHandler{}
}

// GetEnums handles GET /v1/metadata/enums. ?locale=ru switches the labels.
func (h *MetadataHandler) GetEnums(w http.ResponseWriter, r *http.Request) {
	locale := forecast.ParseLocale(r.URL.Query().Get("locale"))

	enums := models.Enums{Locale: string(locale)}
	for _, m := range forecast.AllMetrics() {
		enums.Metrics = append(enums.Metrics, models.EnumValue{Value: string(m), Label: m.Label(locale)})
	}
	for _, d := range []forecast.DayCount{forecast.Days3, forecast.Days5} {
		enums.DayCounts = append(enums.DayCounts, models.DayCountValue{Value: int(d), Label: d.Label(locale)})
	}
	for _, a := range forecast.AllAssessments() {
		enums.Assessments = append(enums.Assessments, models.EnumValue{Value: string(a), Label: a.Label(locale)})
	}

	response.JSON(w, r, http.StatusOK, enums)
}
