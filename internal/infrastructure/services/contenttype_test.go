package services_test

import (
	"testing"

	"github.com/sophialabs/declarecheck/internal/infrastructure/services"
)

func TestDetectLogFormat(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		fileName    string
		head        []byte
		expected    services.LogFormat
	}{
		{"explicit header wins", "application/json", "log.xes", []byte(`<log>`), services.FormatJSON},
		{"xml header", "application/xml; charset=utf-8", "", nil, services.FormatXES},
		{"xes header", "application/x-xes", "", nil, services.FormatXES},
		{".xes extension", "", "orders.xes", nil, services.FormatXES},
		{".XML extension", "", "ORDERS.XML", nil, services.FormatXES},
		{".json extension", "", "orders.json", []byte(`<log>`), services.FormatJSON},
		{"unknown header falls through", "text/plain", "orders.xes", nil, services.FormatXES},
		{"unknown extension falls through to sniff", "", "orders.log", []byte("  \n<?xml version=\"1.0\"?>"), services.FormatXES},
		{"sniff json", "", "", []byte(`{"traces": []}`), services.FormatJSON},
		{"sniff xml with BOM", "", "", []byte("\ufeff<log/>"), services.FormatXES},
		{"empty body", "", "", nil, services.FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := services.DetectLogFormat(tt.contentType, tt.fileName, tt.head)
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
