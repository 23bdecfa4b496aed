package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/ledger"
)

func TestClosing_Aritmetica(t *testing.T) {
	cases := []struct {
		name        string
		op          entity.Operation
		initial     int64
		operational int64
		want        int64
	}{
		{"entrada suma", entity.OperationAddProduct, 10, 5, 15},
		{"entrada desde cero", entity.OperationAddProduct, 0, 7, 7},
		{"traslado entrante suma", entity.OperationTransferIn, 3, 4, 7},
		{"salida resta", entity.OperationIssueProduct, 10, 4, 6},
		{"salida deja en cero", entity.OperationIssueProduct, 10, 10, 0},
		{"traslado saliente resta", entity.OperationTransferOut, 10, 4, 6},
		{"ajuste es absoluto hacia abajo", entity.OperationAdjustment, 20, 5, 5},
		{"ajuste es absoluto hacia arriba", entity.OperationAdjustment, 2, 30, 30},
		{"ajuste a cero", entity.OperationAdjustment, 9, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ledger.Closing(tc.op, tc.initial, tc.operational)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClosing_Rechazos(t *testing.T) {
	cases := []struct {
		name        string
		op          entity.Operation
		initial     int64
		operational int64
		wantErr     error
	}{
		{"salida mayor al disponible", entity.OperationIssueProduct, 3, 4, domain.ErrInvalidQuantity},
		{"traslado saliente mayor al disponible", entity.OperationTransferOut, 0, 1, domain.ErrInvalidQuantity},
		{"ajuste negativo", entity.OperationAdjustment, 10, -1, domain.ErrInvalidQuantity},
		{"entrada negativa", entity.OperationAddProduct, 10, -3, domain.ErrInvalidQuantity},
		{"salida negativa", entity.OperationIssueProduct, 10, -3, domain.ErrInvalidQuantity},
		{"operación desconocida", entity.Operation(0), 10, 1, domain.ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ledger.Closing(tc.op, tc.initial, tc.operational)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}
