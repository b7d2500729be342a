package repository

// AllModels はマイグレーション生成の差分検出対象となる全モデルを返す。
// 新しいモデルを追加した場合はここにも登録する。
func AllModels() []interface{} {
	return []interface{}{
		&UserModel{},
		&ProductModel{},
	}
}
