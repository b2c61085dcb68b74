package commands

import (
	"reflect"
	"testing"
)

func TestEndpoints(t *testing.T) {
	c := Command{Aliases: []string{"meny", " ", "/hem"}}
	got := c.Endpoints("/start")
	want := []string{"/start", "/meny", "/hem"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Endpoints = %v, want %v", got, want)
	}
	if !c.Answers("/start", "meny") || !c.Answers("/start", "/start") {
		t.Fatal("alias and canonical name must answer")
	}
	if c.Answers("/start", "statistik") {
		t.Fatal("unrelated name answered")
	}
}
