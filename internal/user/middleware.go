package user

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/describly/feature-board-backend/pkg/token"
	"github.com/gin-gonic/gin"
)

const (
	// CookieName 是携带投票者身份凭据的Cookie名，值的格式为 "<uuid>.<签名>"。
	CookieName   = "voter-id"
	CookieMaxAge = 365 * 24 * 60 * 60
	VoterIDKey   = "voterID"
)

// parseCredential 将 "<uuid>.<签名>" 形式的凭据拆开并验证。
// 验证失败时返回空字符串。
func parseCredential(credential string) string {
	id, sig, found := strings.Cut(credential, ".")
	if !found || !IsValidUUID(id) {
		return ""
	}
	if !token.ValidateVoterID(id, sig) {
		return ""
	}
	return id
}

// readCredential 依次从Cookie和Authorization头中提取身份凭据。
// 移动客户端通常使用 "Authorization: Voter <uuid>.<签名>" 头，Web端使用Cookie。
func readCredential(c *gin.Context) string {
	if credential, err := c.Cookie(CookieName); err == nil && credential != "" {
		return credential
	}
	auth := c.GetHeader("Authorization")
	if after, ok := strings.CutPrefix(auth, "Voter "); ok {
		return after
	}
	return ""
}

// EnsureVoterCookieMiddleware 确保客户端持有一个签名正确的身份凭据。
// 如果没有或验证失败，它会签发一个新的临时身份并设置Cookie。
func EnsureVoterCookieMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		credential := readCredential(c)

		// 如果凭据不存在，或存在但验证不通过，则签发一个新的
		if parseCredential(credential) == "" {
			if credential != "" {
				fmt.Printf("检测到无效的身份凭据: %s\n", credential)
			}
			provisionalID, err := CreateProvisionalVoter()
			if err != nil {
				fmt.Printf("创建临时投票者ID时发生错误: %v\n", err)
			} else {
				signed := provisionalID + "." + token.SignVoterID(provisionalID)
				c.SetCookie(CookieName, signed, CookieMaxAge, "/", "", false, true)
				// 同一请求内立刻可用，无需等客户端回传
				c.Set(VoterIDKey, provisionalID)
			}
		}

		c.Next()
	}
}

// LoadVoterMiddleware 读取并验证身份凭据，将解析出的投票者ID放入Gin上下文中。
// 匿名或验证失败的请求得到空字符串，由各Handler决定是否拒绝。
func LoadVoterMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(VoterIDKey); !exists {
			c.Set(VoterIDKey, parseCredential(readCredential(c)))
		}
		c.Next()
	}
}

// IdentityResponse 是身份查询接口的响应结构
type IdentityResponse struct {
	VoterID   string `json:"voterId"`
	Activated bool   `json:"activated"`
}

// GetIdentity 返回当前请求解析出的投票者身份。
// 路由上挂载了EnsureVoterCookieMiddleware，因此首次调用也会得到一个新签发的身份。
func GetIdentity(c *gin.Context) {
	voterID := c.GetString(VoterIDKey)
	if voterID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "无法签发投票者身份，请重试"})
		return
	}

	activated, err := IsVoterActivated(voterID)
	if err != nil {
		// Redis不可用时身份仍然有效，只是无法告知激活状态
		activated = false
	}

	c.JSON(http.StatusOK, IdentityResponse{
		VoterID:   voterID,
		Activated: activated,
	})
}
