package database

import (
	"errors"
	"fmt"

	"meta-anchor/common"
)

var (
	ErrNotFound          = fmt.Errorf("record %w", common.ErrNotFound)
	ErrAlreadyExists     = fmt.Errorf("record %w", common.ErrAlreadyExists)
	ErrUnsupportedDBType = errors.New("unsupported database type")
)
