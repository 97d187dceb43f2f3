package repository

import "errors"

// 共通の見つからないエラー（gorm.ErrRecordNotFoundを外へ漏らさない）
var ErrNotFound = errors.New("not found")

// 一意制約違反（orderCode・取引参照の衝突など）
var ErrDuplicate = errors.New("duplicate")
