// Command bskyfollow manages who a Bluesky account follows: it finds
// accounts that do not follow back and followers that are not followed back,
// and unfollows, follows or lists them in bulk within write quotas.
package main

func main() {
	Execute()
}
