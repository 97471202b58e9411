// ABOUTME: Package insights queries the social insights search API.
// ABOUTME: Feeds the tweet content cards sent by follow-up actions.
package insights
