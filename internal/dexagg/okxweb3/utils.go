package okxweb3

import "strconv"

// SolanaChainIndex is OKX's index for Solana mainnet.
const SolanaChainIndex = "501"

const solanaChainId = 34268394551451

func ChainIdToChainIndex(chainId int64) (string, bool) {
	switch chainId {
	case 1, 10, 56, 137, 324, 8453, 42161, 59144, 81457, 534352:
		return strconv.FormatInt(chainId, 10), true
	case solanaChainId:
		return SolanaChainIndex, true
	}
	return "", false
}
