package core

import (
	"fmt"
	"testing"
)

func benchmarkRoomBroadcast(b *testing.B, recipients int) {
	hub := NewHub(nil)

	clients := make([]*Client, 0, recipients)
	for i := range recipients {
		c := NewClient(fmt.Sprintf("c%d", i), fmt.Sprintf("u%d", i), 1)
		hub.Presence().Register(c.UserID(), c)
		hub.Subscriptions().Join("bench", c)
		clients = append(clients, c)
	}

	plan := &Plan{}
	plan.ToRoom("bench", UpdateNoticeEvent("bench", "payload"))

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		hub.Apply(nil, plan)
		for _, c := range clients {
			<-c.Events()
		}
	}
}

func BenchmarkRoomBroadcast_10(b *testing.B)  { benchmarkRoomBroadcast(b, 10) }
func BenchmarkRoomBroadcast_100(b *testing.B) { benchmarkRoomBroadcast(b, 100) }
func BenchmarkRoomBroadcast_500(b *testing.B) { benchmarkRoomBroadcast(b, 500) }
