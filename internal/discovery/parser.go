package discovery

import (
	"regexp"

	"solana-sniper/internal/solana"
)

// createPattern matches the pump.fun log line emitted by a token launch.
var createPattern = regexp.MustCompile(`^Program log: Instruction: Create(V2)?$`)

// IsCreate reports whether a transaction's logs contain a launch instruction.
func IsCreate(logs []string) bool {
	for _, line := range logs {
		if createPattern.MatchString(line) {
			return true
		}
	}
	return false
}

// knownPrograms never hold a launched mint.
var knownPrograms = map[string]bool{
	solana.PumpFunProgram:   true,
	solana.TokenProgram:     true,
	solana.Token2022Program: true,
	solana.SystemProgram:    true,
}

// ResolveMint finds the launched mint among a create transaction's account keys.
//
// The mint is the key whose bonding-curve PDA is also referenced by the
// transaction. When no key qualifies the first plausible signer slot after the
// fee payer is used, matching the pump.fun account layout.
func ResolveMint(accountKeys []string) (string, bool) {
	present := make(map[string]bool, len(accountKeys))
	for _, k := range accountKeys {
		present[k] = true
	}

	for i, k := range accountKeys {
		if i == 0 || knownPrograms[k] || !solana.IsValidAddress(k) {
			continue
		}
		curve, err := solana.BondingCurveAddress(k)
		if err == nil && present[curve] {
			return k, true
		}
	}

	for i := 1; i < len(accountKeys) && i < 4; i++ {
		k := accountKeys[i]
		if !knownPrograms[k] && solana.IsValidAddress(k) {
			return k, true
		}
	}
	return "", false
}
