package services_test

import (
	"testing"

	"github.com/sophialabs/declarecheck/internal/infrastructure/services"
)

var seven = []int{1, 2, 3, 4, 5, 6, 7}

var smallPages = services.PageConfig{DefaultSize: 3, MaxSize: 5}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name      string
		query     map[string]string
		wantData  []int
		wantPage  int
		wantSize  int
		wantPages int
		hasNext   bool
		hasPrev   bool
	}{
		{"first page by default", map[string]string{}, []int{1, 2, 3}, 1, 3, 3, true, false},
		{"middle page", map[string]string{"page": "2", "size": "3"}, []int{4, 5, 6}, 2, 3, 3, true, true},
		{"last page is short", map[string]string{"page": "3"}, []int{7}, 3, 3, 3, false, true},
		{"beyond the end", map[string]string{"page": "9"}, []int{}, 3, 3, 3, false, true},
		{"size capped at max", map[string]string{"size": "100"}, []int{1, 2, 3, 4, 5}, 1, 5, 2, true, false},
		{"invalid values ignored", map[string]string{"page": "0", "size": "x"}, []int{1, 2, 3}, 1, 3, 3, true, false},
		{"offset limit", map[string]string{"offset": "2", "limit": "4"}, []int{3, 4, 5, 6}, 1, 4, 2, true, true},
		{"offset only", map[string]string{"offset": "6"}, []int{7}, 3, 3, 3, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := services.Paginate(seven, smallPages, tt.query)
			if len(p.Data) != len(tt.wantData) {
				t.Fatalf("expected %v, got %v", tt.wantData, p.Data)
			}
			for i := range tt.wantData {
				if p.Data[i] != tt.wantData[i] {
					t.Fatalf("expected %v, got %v", tt.wantData, p.Data)
				}
			}
			if p.Page != tt.wantPage || p.Size != tt.wantSize || p.TotalPages != tt.wantPages {
				t.Errorf("page/size/pages = %d/%d/%d, want %d/%d/%d",
					p.Page, p.Size, p.TotalPages, tt.wantPage, tt.wantSize, tt.wantPages)
			}
			if p.TotalItems != 7 {
				t.Errorf("expected 7 total items, got %d", p.TotalItems)
			}
			if p.HasNext != tt.hasNext || p.HasPrevious != tt.hasPrev {
				t.Errorf("has_next/has_previous = %v/%v, want %v/%v", p.HasNext, p.HasPrevious, tt.hasNext, tt.hasPrev)
			}
		})
	}
}

func TestPaginate_Empty(t *testing.T) {
	p := services.Paginate([]string(nil), services.DefaultPageConfig, map[string]string{"page": "1"})
	if p.Data == nil || len(p.Data) != 0 {
		t.Errorf("expected empty non-nil data, got %v", p.Data)
	}
	if p.TotalPages != 1 {
		t.Errorf("expected 1 page, got %d", p.TotalPages)
	}
}

func TestPaginated(t *testing.T) {
	if services.Paginated(map[string]string{"q": "ship"}) {
		t.Error("expected plain query to be unpaginated")
	}
	if !services.Paginated(map[string]string{"limit": "5"}) {
		t.Error("expected limit to request a page")
	}
}
