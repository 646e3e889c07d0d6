package e2e

import (
	"time"

	"github.com/google/uuid"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Mojang login and broadcast", func() {
	It("lets a successfully verified login broadcast to every authenticated connection", func() {
		aliceUUID := uuid.New()
		mojang := fakeMojangServer(aliceUUID, "Alice")
		DeferCleanup(mojang.Close)

		srv := startTestServer(mojang)
		alice := dial(srv.url)
		DeferCleanup(alice.close)
		bob := dial(srv.url)
		DeferCleanup(bob.close)

		alice.send("RequestMojangInfo", map[string]any{})
		info := alice.receive()
		Expect(info.M).To(Equal("MojangInfo"))

		alice.send("LoginMojang", map[string]any{
			"name":           "Alice",
			"uuid":           aliceUUID,
			"allow_messages": true,
		})
		Expect(alice.receive().M).To(Equal("Success"))

		bobUUID := uuid.New()
		bob.send("LoginJWT", map[string]any{"token": mintTestToken(srv, "Bob", bobUUID), "allow_messages": true})
		Expect(bob.receive().M).To(Equal("Success"))

		alice.send("Message", map[string]any{"content": "hi"})

		seenByAlice := alice.receive()
		Expect(seenByAlice.M).To(Equal("Message"))

		seenByBob := bob.receive()
		Expect(seenByBob.M).To(Equal("Message"))
	})

	It("replies InvalidId when the verifier's uuid does not match the client's claim", func() {
		claimed := uuid.New()
		reported := uuid.New()
		mojang := fakeMojangServer(reported, "Alice")
		DeferCleanup(mojang.Close)

		srv := startTestServer(mojang)
		alice := dial(srv.url)
		DeferCleanup(alice.close)

		alice.send("RequestMojangInfo", map[string]any{})
		Expect(alice.receive().M).To(Equal("MojangInfo"))

		alice.send("LoginMojang", map[string]any{
			"name":           "Alice",
			"uuid":           claimed,
			"allow_messages": true,
		})

		env := alice.receive()
		Expect(env.M).To(Equal("Error"))
		Expect(string(env.C)).To(ContainSubstring("InvalidId"))
	})
})

var _ = Describe("Unauthenticated access", func() {
	It("rejects a Message from a connection that never logged in", func() {
		srv := startTestServer(nil)
		alice := dial(srv.url)
		DeferCleanup(alice.close)

		alice.send("Message", map[string]any{"content": "hi"})

		env := alice.receive()
		Expect(env.M).To(Equal("Error"))
		Expect(string(env.C)).To(ContainSubstring("NotLoggedIn"))
	})
})

var _ = Describe("Moderator permissions", func() {
	It("rejects RequestUserCount from a non-moderator but allows it for a moderator", func() {
		srv := startTestServer(nil)

		alice := dial(srv.url)
		DeferCleanup(alice.close)
		aliceUUID := uuid.New()
		alice.send("LoginJWT", map[string]any{"token": mintTestToken(srv, "Alice", aliceUUID), "allow_messages": true})
		Expect(alice.receive().M).To(Equal("Success"))

		alice.send("RequestUserCount", map[string]any{})
		env := alice.receive()
		Expect(env.M).To(Equal("Error"))
		Expect(string(env.C)).To(ContainSubstring("NotPermitted"))

		srv.store.state.Moderators[aliceUUID] = struct{}{}

		alice.send("RequestUserCount", map[string]any{})
		env = alice.receive()
		Expect(env.M).To(Equal("UserCount"))
	})
})

var _ = Describe("Banning a user", func() {
	It("forcibly disconnects every connection bound to the banned uuid", func() {
		srv := startTestServer(nil)

		mod := dial(srv.url)
		DeferCleanup(mod.close)
		modUUID := uuid.New()
		mod.send("LoginJWT", map[string]any{"token": mintTestToken(srv, "Mod", modUUID), "allow_messages": true})
		Expect(mod.receive().M).To(Equal("Success"))
		srv.store.state.Moderators[modUUID] = struct{}{}

		bobUUID := uuid.New()
		bob1 := dial(srv.url)
		bob1.send("LoginJWT", map[string]any{"token": mintTestToken(srv, "Bob", bobUUID), "allow_messages": true})
		Expect(bob1.receive().M).To(Equal("Success"))

		bob2 := dial(srv.url)
		bob2.send("LoginJWT", map[string]any{"token": mintTestToken(srv, "Bob", bobUUID), "allow_messages": true})
		Expect(bob2.receive().M).To(Equal("Success"))

		mod.send("BanUser", map[string]any{"uuid": bobUUID})
		env := mod.receive()
		Expect(env.M).To(Equal("Success"))

		bob1.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, _, err := bob1.conn.ReadMessage()
		Expect(err).To(HaveOccurred())

		bob2.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, _, err = bob2.conn.ReadMessage()
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Private messages", func() {
	It("rejects a private message when the recipient does not accept them", func() {
		srv := startTestServer(nil)

		alice := dial(srv.url)
		DeferCleanup(alice.close)
		alice.send("LoginJWT", map[string]any{"token": mintTestToken(srv, "Alice", uuid.New()), "allow_messages": true})
		Expect(alice.receive().M).To(Equal("Success"))

		bob := dial(srv.url)
		DeferCleanup(bob.close)
		bob.send("LoginJWT", map[string]any{"token": mintTestToken(srv, "Bob", uuid.New()), "allow_messages": false})
		Expect(bob.receive().M).To(Equal("Success"))

		alice.send("PrivateMessage", map[string]any{"receiver": "Bob", "content": "hey"})

		env := alice.receive()
		Expect(env.M).To(Equal("Error"))
		Expect(string(env.C)).To(ContainSubstring("PrivateMessageNotAccepted"))
	})
})
