package program

const (
	// accountStorageOverhead is the per-account metadata charged as data bytes.
	accountStorageOverhead = 128
	lamportsPerByteYear    = 3480
	exemptionThreshold     = 2

	// SignatureFee is charged once per transaction signature.
	SignatureFee uint64 = 5000
)

// RentExemptMinimum returns the lamports an account of dataLen bytes must hold.
func RentExemptMinimum(dataLen int) uint64 {
	return uint64(accountStorageOverhead+dataLen) * lamportsPerByteYear * exemptionThreshold
}

// InitializeCost is what the payer must hold to create the global state when
// existing lamports already sit at the state address.
func InitializeCost(existing uint64) uint64 {
	rent := RentExemptMinimum(GlobalStateSize)
	if existing >= rent {
		return SignatureFee
	}
	return rent - existing + SignatureFee
}
