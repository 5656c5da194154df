package checksum

import "testing"

func TestSum(t *testing.T) {
	// sha256("abc")
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Sum([]byte("abc")); got != want {
		t.Errorf("Sum = %s, want %s", got, want)
	}
}

func TestJSON(t *testing.T) {
	type rec struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	}
	a, err := JSON(rec{1, "Aria"})
	if err != nil {
		t.Fatal(err)
	}
	b, _ := JSON(rec{1, "Aria"})
	c, _ := JSON(rec{1, "Aria the Bold"})
	if a != b {
		t.Error("equal values gave different digests")
	}
	if a == c {
		t.Error("different values gave equal digests")
	}
	if a != Sum([]byte(`{"id":1,"title":"Aria"}`)) {
		t.Error("digest is not over the JSON encoding")
	}

	if _, err := JSON(make(chan int)); err == nil {
		t.Error("unencodable value should fail")
	}
}
