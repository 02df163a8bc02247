package admin

import handlershared "github.com/aminamgad/ribh-v1-sub006/internal/http/handlers/shared"

func normalizePagination(page, pageSize int) (int, int) {
	return handlershared.NormalizePagination(page, pageSize)
}
