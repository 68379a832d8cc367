package ton

import "time"

const (
	// наименьшая единица TON (1 TON = 10^9 наноTON)
	NanoTON = 1_000_000_000

	// минимальная сумма депозита в наноTON, меньшее игнорируется
	MinDepositNano = 1_000_000_000

	// интервал проверки новых депозитов
	DepositCheckInterval = 30 * time.Second
)

// представляет тип сети TON
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
)

// конечные точки TON API
const (
	TonAPIMainnet = "https://tonapi.io/v2"
	TonAPITestnet = "https://testnet.tonapi.io/v2"
)

// конвертирует TON в наноTON
func TONToNano(ton float64) int64 {
	return int64(ton * NanoTON)
}

// конвертирует наноTON в TON
func NanoToTON(nano int64) float64 {
	return float64(nano) / NanoTON
}
