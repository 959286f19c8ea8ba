package ai

import (
	"fmt"
	"strings"
)

const classifySystemPrompt = `You are a decluttering assistant. Given photos and a short description of a
secondhand item, respond with a single JSON object:
{"category": string, "condition": one of "like new"|"good"|"fair"|"poor",
"usage_score": integer 0-100 estimating how often the owner still uses it,
"recommendation": one of "keep"|"sell"|"donate"|"dispose",
"rationale": short paragraph, "sentiment": one word describing the likely
emotional attachment}. Respond with JSON only.`

const priceSystemPrompt = `You are a secondhand marketplace pricing assistant. Given an item
description, respond with a single JSON object:
{"low": number, "mid": number, "high": number, "confidence": number 0-1}
estimating a realistic resale price band in the user's local currency.
Respond with JSON only.`

const listingSystemPrompt = `You are a marketplace copywriter. Given an item, write listing copy in the
requested language and tone. Respond with a single JSON object:
{"title": string, "body": string, "hashtags": array of strings without the
leading # sign}. Respond with JSON only.`

const movingPlanSystemPrompt = `You are a moving-preparation planner. Given a move date, region and
preferred trade method, produce a week-by-week declutter plan. Respond with
a single JSON object: {"weeks": [{"week": integer starting at 1, "theme":
string, "tasks": array of short task names}]}. Respond with JSON only.`

func classifyUserPrompt(item ItemContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Item title: %s\n", item.Title)
	if item.Notes != "" {
		fmt.Fprintf(&b, "Owner notes: %s\n", item.Notes)
	}
	fmt.Fprintf(&b, "Photos attached: %d\n", len(item.PhotoURLs))
	b.WriteString("Classify this item.")
	return b.String()
}

func priceUserPrompt(item ItemContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Item title: %s\n", item.Title)
	if item.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", item.Category)
	}
	if item.Condition != "" {
		fmt.Fprintf(&b, "Condition: %s\n", item.Condition)
	}
	if item.Notes != "" {
		fmt.Fprintf(&b, "Owner notes: %s\n", item.Notes)
	}
	b.WriteString("Suggest a resale price band.")
	return b.String()
}

func listingUserPrompt(req ListingRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Item title: %s\n", req.Title)
	if req.Condition != "" {
		fmt.Fprintf(&b, "Condition: %s\n", req.Condition)
	}
	if req.Features != "" {
		fmt.Fprintf(&b, "Notable features: %s\n", req.Features)
	}
	tone := req.Tone
	if tone == "" {
		tone = "friendly"
	}
	lang := req.Language
	if lang == "" {
		lang = "en"
	}
	fmt.Fprintf(&b, "Tone: %s\nLanguage: %s\n", tone, lang)
	b.WriteString("Write the listing copy.")
	return b.String()
}

func movingPlanUserPrompt(mc MovingContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Move date: %s\n", mc.MoveDate.Format("2006-01-02"))
	if mc.Region != "" {
		fmt.Fprintf(&b, "Region: %s\n", mc.Region)
	}
	if mc.TradeMethod != "" {
		fmt.Fprintf(&b, "Preferred trade method: %s\n", mc.TradeMethod)
	}
	weeks := mc.Weeks
	if weeks <= 0 {
		weeks = 4
	}
	fmt.Fprintf(&b, "Plan length: %d weeks\n", weeks)
	b.WriteString("Build the moving plan.")
	return b.String()
}
