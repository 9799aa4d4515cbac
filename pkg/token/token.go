package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// secretKey 是一个全局变量，用于存储身份签名所使用的密钥。
var secretKey []byte

// InitializeSecretKey 初始化身份签名密钥。
// 如果配置中提供了密钥则直接使用，否则生成一个密码学安全的32字节随机密钥。
// 注意：使用随机密钥时，服务重启后所有已签发的身份凭据都会失效。
func InitializeSecretKey(configuredSecret string) {
	if configuredSecret != "" {
		secretKey = []byte(configuredSecret)
		fmt.Println("已从配置加载HMAC身份密钥。")
		return
	}

	key := make([]byte, 32)
	_, err := rand.Read(key)
	if err != nil {
		panic("无法生成安全的密钥: " + err.Error())
	}
	secretKey = key
	fmt.Println("未配置身份密钥，已生成临时HMAC密钥（重启后已签发身份将失效）。")
}

// SignVoterID 为一个投票者ID生成HMAC-SHA256签名。
// 返回签名的Base64编码字符串，它与ID一起组成客户端持有的身份凭据。
func SignVoterID(voterID string) string {
	mac := hmac.New(sha256.New, secretKey)
	mac.Write([]byte(voterID))
	signature := mac.Sum(nil)
	return base64.RawURLEncoding.EncodeToString(signature)
}

// ValidateVoterID 验证投票者ID和签名是否匹配。
func ValidateVoterID(voterID string, signatureB64 string) bool {
	if voterID == "" || signatureB64 == "" {
		return false
	}

	// 1. 重新计算预期的签名
	mac := hmac.New(sha256.New, secretKey)
	mac.Write([]byte(voterID))
	expectedSignature := mac.Sum(nil)

	// 2. 解码客户端传来的签名
	actualSignature, err := base64.RawURLEncoding.DecodeString(signatureB64)
	if err != nil {
		return false // 签名解码失败
	}

	// 3. 使用 hmac.Equal 进行时间恒定的比较，防止时序攻击
	return hmac.Equal(expectedSignature, actualSignature)
}
