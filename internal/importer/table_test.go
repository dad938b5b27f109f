package importer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAutoMapping(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		shape  Shape
		want   Mapping
	}{
		{
			name:   "english wide sheet",
			header: []string{"Team name", "Car class", "Car no.", "Driver name 1", "Driver name 2", "Driver name 3"},
			shape:  ShapeWide,
			want: Mapping{
				Shape:   ShapeWide,
				Team:    "Team name",
				Class:   "Car class",
				TeamNo:  "Car no.",
				Drivers: []string{"Driver name 1", "Driver name 2", "Driver name 3"},
			},
		},
		{
			name:   "danish long sheet",
			header: []string{"Hold", "Klasse", "Kører", "Startnr"},
			shape:  ShapeLong,
			want: Mapping{
				Shape:   ShapeLong,
				Team:    "Hold",
				Class:   "Klasse",
				Driver:  "Kører",
				Drivers: []string{"Kører"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AutoMapping(Table{Header: tt.header}, tt.shape)
			if err != nil {
				t.Fatalf("AutoMapping() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("AutoMapping() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
