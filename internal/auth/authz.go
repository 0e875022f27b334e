package auth

// CanModify は呼び出し元が対象リソースを変更できるかを判定する。
// I/Oを行わない純粋関数。リソースの所有者本人のみが変更を許可される。
// falseはForbidden（リソースは存在するが権限なし）に対応し、
// リソース不存在（NotFound）とは呼び出し側で区別される。
func CanModify(callerID, ownerID string) bool {
	return callerID != "" && callerID == ownerID
}
