package repository

import "errors"

// 見つからないときの統一エラー
var ErrNotFound = errors.New("not found")

// 一意制約違反（order_number / reference / token の競合）
var ErrDuplicate = errors.New("duplicate")
