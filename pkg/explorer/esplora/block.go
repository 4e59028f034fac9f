package esplora

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

func (e *esplora) GetBlockHeight(ctx context.Context) (uint32, error) {
	url := fmt.Sprintf("%s/blocks/tip/height", e.apiURL)
	resp, err := e.get(ctx, url)
	if err != nil {
		return 0, err
	}

	blockHeight, err := strconv.ParseUint(strings.TrimSpace(resp), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(blockHeight), nil
}
