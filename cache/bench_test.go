package cache

import (
	"context"
	"fmt"
	"testing"
)

func BenchmarkMemoryCache_Get_Hit(b *testing.B) {
	c := NewMemoryCache(DefaultPolicy())
	ctx := context.Background()
	_ = c.Set(ctx, "key", []byte("value"))

	for b.Loop() {
		_, _ = c.Get(ctx, "key")
	}
}

func BenchmarkMemoryCache_Set_Evicting(b *testing.B) {
	c := NewMemoryCache(DefaultPolicy())
	ctx := context.Background()
	value := []byte("test value")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Set(ctx, fmt.Sprintf("key-%d", i), value)
	}
}

func BenchmarkRequestKey(b *testing.B) {
	url := "https://apis.data.go.kr/1613000/RTMSDataSvcAptTrade/getRTMSDataSvcAptTrade?serviceKey=k&LAWD_CD=11440&DEAL_YMD=202501&numOfRows=100"
	for b.Loop() {
		_ = RequestKey(url)
	}
}
