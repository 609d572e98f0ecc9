package auth

import (
	"fmt"
	"strings"
)

// ShowAppPasswordGuide explains how to create a Bluesky app password
func ShowAppPasswordGuide() {
	fmt.Println(strings.Repeat("=", 72))
	fmt.Println("BLUESKY APP PASSWORD")
	fmt.Println(strings.Repeat("=", 72))
	fmt.Println()
	fmt.Println("bskyfollow logs in with an app password, not your account password.")
	fmt.Println()
	fmt.Println("STEP 1: Open https://bsky.app and sign in")
	fmt.Println("STEP 2: Settings -> Privacy and security -> App passwords")
	fmt.Println("STEP 3: Add App Password, give it a name such as \"bskyfollow\"")
	fmt.Println("STEP 4: Copy the generated value (it looks like abcd-efgh-ijkl-mnop)")
	fmt.Println()
	fmt.Println("TIPS:")
	fmt.Println("   - The password is shown once; create a new one if you lose it")
	fmt.Println("   - Revoke it from the same settings page at any time")
	fmt.Println("   - Self-hosted PDS users: pass --service with your PDS URL")
	fmt.Println()
	fmt.Println(strings.Repeat("=", 72))
	fmt.Println()
}

// ShowQuickGuide shows a one-line reminder
func ShowQuickGuide() {
	fmt.Println("\nApp password: bsky.app -> Settings -> Privacy and security -> App passwords")
	fmt.Println("   Type 'help' for detailed instructions")
}
