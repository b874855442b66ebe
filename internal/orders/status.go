package orders

// Status order: integer di [-3, 3].
//
//	 0 = pending
//	 1, 2 = sedang diproses
//	 3 = selesai (terminal)
//	-1 = dibatalkan admin (terminal)
//	-2 = dibatalkan (alasan lain)
//	-3 = ditolak customer
const (
	StatusPending         = 0
	StatusConfirmed       = 1
	StatusShipping        = 2
	StatusCompleted       = 3
	StatusCanceledAdmin   = -1
	StatusCanceledOther   = -2
	StatusRefusedCustomer = -3
)

// IsValidTransition: tabel legalitas transisi status.
// - tidak boleh diam di status yang sama
// - -1 dan 3 terminal
// - next harus di [-3, 3]
// - admin-cancel (-1) tidak boleh lagi setelah lewat proses awal (current > 1)
func IsValidTransition(current, next int) bool {
	if current == next || current == StatusCanceledAdmin || current == StatusCompleted {
		return false
	}
	if next < StatusRefusedCustomer || next > StatusCompleted {
		return false
	}
	if current > StatusConfirmed && next == StatusCanceledAdmin {
		return false
	}
	return true
}

// IsCancelClass: status negatif yang memicu pengembalian stok.
func IsCancelClass(status int) bool {
	return status == StatusCanceledAdmin || status == StatusCanceledOther || status == StatusRefusedCustomer
}
