package model

// UserContact 下单用户的联系信息，来自外部用户系统
type UserContact struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
