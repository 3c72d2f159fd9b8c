package governance

import (
	"context"
	"testing"
)

func TestDefaultPolicyEngine_Evaluate(t *testing.T) {
	engine := NewDefaultPolicyEngine()
	ctx := context.Background()

	// Test Allow (Default)
	req1 := Request{Tool: "shell", Arguments: `{"command":"ls -la"}`}
	res1, err := engine.Evaluate(ctx, req1)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if res1.Effect != EffectAllow {
		t.Errorf("Expected EffectAllow, got %s", res1.Effect)
	}

	// Test Deny Tool
	engine.DenyTool("browser")
	req2 := Request{Tool: "browser"}
	res2, err := engine.Evaluate(ctx, req2)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if res2.Effect != EffectDeny {
		t.Errorf("Expected EffectDeny, got %s", res2.Effect)
	}
}

func TestDefaultPolicyEngine_DestructiveCommands(t *testing.T) {
	engine := NewDefaultPolicyEngine()
	ctx := context.Background()

	denied := []string{
		"rm -rf /",
		"rm -fr /home",
		"sudo mkfs.ext4 /dev/sda1",
		"shutdown -h now",
		"dd if=/dev/zero of=/dev/sda",
	}
	for _, cmd := range denied {
		res, err := engine.Evaluate(ctx, Request{Tool: "shell", Arguments: cmd})
		if err != nil {
			t.Fatalf("Evaluate(%q) failed: %v", cmd, err)
		}
		if res.Effect != EffectDeny {
			t.Errorf("Expected %q to be denied, got %s", cmd, res.Effect)
		}
	}

	res, err := engine.Evaluate(ctx, Request{Tool: "shell", Arguments: "echo hello && date"})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if res.Effect != EffectAllow {
		t.Errorf("Expected harmless command to be allowed, got %s", res.Effect)
	}
}
