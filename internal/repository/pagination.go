package repository

import "gorm.io/gorm"

// maxPageSize 单页上限，与接口层保持一致
const maxPageSize = 100

// applyPagination 应用分页参数；pageSize 不大于 0 时返回全部结果
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page < 1 {
		page = 1
	}
	return query.Limit(pageSize).Offset((page - 1) * pageSize)
}
