package workspace

import (
	"os"
	"path/filepath"
)

const readmeText = `# vjdeck workspace

Drop visual module files into modules/. Each module is one .js file
whose base name is its id (letters and digits, starting with a letter).

Tag the file head with metadata so the dashboard can list it without
loading it:

    /**
     * @vjdeck name: My Module
     * @vjdeck category: Shapes
     */
`

const starterModule = `/**
 * @vjdeck name: Starter Sphere
 * @vjdeck category: Shapes
 */
export default class StarterSphere {
  static name = 'Starter Sphere';
  static category = 'Shapes';
  static methods = [
    {
      name: 'pulse',
      options: [
        { name: 'speed', type: 'number', min: 0, max: 10, defaultVal: 1 },
        { name: 'tint', type: 'color', defaultVal: '#ffffff' },
      ],
    },
  ];

  pulse({ speed, tint }) {
    // Render code lives in the projector.
  }
}
`

// Scaffold prepares a directory as a workspace: the modules
// subdirectory, a README, and one starter module so a first-time user
// sees something in the dashboard. Existing files are left alone.
func Scaffold(dir string) error {
	modules := filepath.Join(dir, "modules")
	if err := os.MkdirAll(modules, 0o755); err != nil {
		return err
	}
	writeIfMissing(filepath.Join(dir, "README.md"), readmeText)
	writeIfMissing(filepath.Join(modules, "StarterSphere.js"), starterModule)
	return nil
}

func writeIfMissing(path, content string) {
	if _, err := os.Stat(path); err == nil {
		return
	}
	_ = os.WriteFile(path, []byte(content), 0o644)
}
