// Package password はパスワードの一方向ハッシュ化と照合を提供する。
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost はbcryptのデフォルトコスト。
const DefaultCost = 10

// MaxLength はbcryptが扱える平文の最大バイト長。
// これを超える入力はハッシュ化前にバリデーションで拒否する。
const MaxLength = 72

// Hasher はbcryptによるパスワードハッシュ化を行う。
// 生成後は不変で、複数のgoroutineから安全に利用できる。
type Hasher struct {
	cost int
}

// NewHasher は指定コストのHasherを生成する。
// コストがbcryptの許容範囲外の場合はDefaultCostを使用する。
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash は平文パスワードのソルト付きハッシュを返す。
// ソルトは呼び出しごとにランダムに生成されるため、同じ平文でも結果は毎回異なる。
func (h *Hasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// Verify は平文パスワードがハッシュと一致するかを返す。
// 不一致や不正なハッシュ形式の場合はfalseを返し、エラーにはしない。
func (h *Hasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// Cost は使用中のbcryptコストを返す。
func (h *Hasher) Cost() int {
	return h.cost
}
