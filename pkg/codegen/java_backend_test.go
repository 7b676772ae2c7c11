package codegen

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xplshn/gct/pkg/config"
	"github.com/xplshn/gct/pkg/util"
)

func javaOut(t *testing.T, src string) string {
	t.Helper()
	return mustTranslate(t, src, quietConfig(config.TargetJava))
}

func TestJavaHelloWorld(t *testing.T) {
	src := `#include <stdio.h>

int main(void) {
    printf("hello\n");
    return 0;
}
`
	want := `public class Main {
    public static void main(String[] args) {
        System.out.println("hello");
        return;
    }
}
`
	if diff := cmp.Diff(want, javaOut(t, src)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestJavaIncrementValueSemantics(t *testing.T) {
	src := `#include <stdio.h>

int main(void) {
    int j = 3;
    int k = ++j + 1;
    int m = j++ + 1;
    printf("%d %d %d\n", j, k, m);
    return 0;
}
`
	want := `public class Main {
    public static void main(String[] args) {
        int j = 3;
        int k = ++j + 1;
        int m = j++ + 1;
        System.out.printf("%d %d %d\n", j, k, m);
        return;
    }
}
`
	if diff := cmp.Diff(want, javaOut(t, src)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestJavaTopLevelLayout(t *testing.T) {
	src := `#define LIMIT 10
#define SCALE 2

int total = 0;
int grid[3];

enum Color { RED, GREEN = 5, BLUE };

struct Point {
    int x;
    int y;
};

int main(void) {
    total = LIMIT * SCALE;
    grid[0] = total;
    printf("%d\n", grid[0]);
    return 0;
}
`
	want := `public class Main {
    static final int LIMIT = 10;
    static final int SCALE = 2;

    static int total = 0;
    static int[] grid = new int[3];

    static final int RED = 0;
    static final int GREEN = 5;
    static final int BLUE = GREEN + 1;

    static class Point {
        int x;
        int y;
    }

    public static void main(String[] args) {
        total = LIMIT * SCALE;
        grid[0] = total;
        System.out.println(grid[0]);
        return;
    }
}
`
	if diff := cmp.Diff(want, javaOut(t, src)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestJavaPrototypeLeavesNoGap(t *testing.T) {
	src := `int twice(int n);

int main(void) {
    printf("%d\n", twice(21));
    return 0;
}

int twice(int n) {
    return n * 2;
}
`
	want := `public class Main {
    public static void main(String[] args) {
        System.out.println(twice(21));
        return;
    }

    static int twice(int n) {
        return n * 2;
    }
}
`
	if diff := cmp.Diff(want, javaOut(t, src)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestJavaPrintfForms(t *testing.T) {
	src := `int main(void) {
    int n = 42;
    double r = 1.5;
    printf("plain\n");
    printf("%d\n", n);
    printf("n = %d, r = %f\n", n, r);
    printf("width %5d\n", n);
    printf("no newline");
    return 0;
}
`
	want := `public class Main {
    public static void main(String[] args) {
        int n = 42;
        double r = 1.5;
        System.out.println("plain");
        System.out.println(n);
        System.out.printf("n = %d, r = %f\n", n, r);
        System.out.printf("width %5d\n", n);
        System.out.print("no newline");
        return;
    }
}
`
	if diff := cmp.Diff(want, javaOut(t, src)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestJavaScanfUsesScanner(t *testing.T) {
	src := `int main(void) {
    int n;
    char name[20];
    scanf("%d", &n);
    scanf("%s", name);
    printf("%s %d\n", name, n);
    return 0;
}
`
	want := `import java.util.Scanner;

public class Main {
    static final Scanner __scanner = new Scanner(System.in);

    public static void main(String[] args) {
        int n;
        String name = "";
        n = __scanner.nextInt();
        name = __scanner.next();
        System.out.printf("%s %d\n", name, n);
        return;
    }
}
`
	if diff := cmp.Diff(want, javaOut(t, src)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestJavaControlFlow(t *testing.T) {
	src := `int classify(int n) {
    if (n < 0) {
        return -1;
    } else if (n == 0) {
        return 0;
    } else {
        return 1;
    }
}

int main(void) {
    int total = 0;
    for (int j = 0; j < 5; j++) {
        if (j % 2 == 0) {
            continue;
        }
        total += j;
    }
    while (total > 20) {
        total -= 5;
    }
    do {
        total++;
    } while (total < 3);
    switch (classify(total)) {
    case -1:
    case 0:
        printf("low\n");
        break;
    default:
        printf("high\n");
        break;
    }
    return 0;
}
`
	want := `public class Main {
    static int classify(int n) {
        if (n < 0) {
            return -1;
        } else if (n == 0) {
            return 0;
        } else {
            return 1;
        }
    }

    public static void main(String[] args) {
        int total = 0;
        for (int j = 0; j < 5; j++) {
            if (j % 2 == 0) {
                continue;
            }
            total += j;
        }
        while (total > 20) {
            total -= 5;
        }
        do {
            total++;
        } while (total < 3);
        switch (classify(total)) {
            case -1:
            case 0:
                System.out.println("low");
                break;
            default:
                System.out.println("high");
                break;
        }
        return;
    }
}
`
	if diff := cmp.Diff(want, javaOut(t, src)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestJavaHeapBecomesReferences(t *testing.T) {
	src := `struct Point {
    int x;
    int y;
};

int main(void) {
    struct Point *p = (struct Point *) malloc(sizeof(struct Point));
    int *buf = (int *) malloc(10 * sizeof(int));
    p->x = 3;
    p->y = p->x + 1;
    buf[0] = p->y;
    printf("%d\n", buf[0]);
    free(buf);
    free(p);
    return 0;
}
`
	want := `public class Main {
    static class Point {
        int x;
        int y;
    }

    public static void main(String[] args) {
        Point p = new Point();
        int[] buf = new int[10];
        p.x = 3;
        p.y = p.x + 1;
        buf[0] = p.y;
        System.out.println(buf[0]);
        buf = null;
        p = null;
        return;
    }
}
`
	if diff := cmp.Diff(want, javaOut(t, src)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestJavaStringIdioms(t *testing.T) {
	src := `int main(void) {
    char word[] = "hello";
    int n = strlen(word);
    if (isalpha(word[0])) {
        printf("letter\n");
    }
    if (strcmp(word, "hello") == 0) {
        printf("same\n");
    }
    printf("%c %d\n", word[1], n);
    return 0;
}
`
	want := `public class Main {
    public static void main(String[] args) {
        String word = "hello";
        int n = word.length();
        if (Character.isLetter(word.charAt(0))) {
            System.out.println("letter");
        }
        if (word.compareTo("hello") == 0) {
            System.out.println("same");
        }
        System.out.printf("%c %d\n", word.charAt(1), n);
        return;
    }
}
`
	if diff := cmp.Diff(want, javaOut(t, src)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestJavaSizeofAndFolding(t *testing.T) {
	src := `#define N 3

int main(void) {
    int vals[3] = {1, 2, 3};
    int extra[N];
    int count = sizeof(vals) / sizeof(vals[0]);
    int bytes = sizeof(int) + sizeof(double);
    int area = 2 + 3 * 4;
    extra[0] = area;
    printf("%d %d %d\n", count, bytes, extra[0]);
    return 0;
}
`
	want := `public class Main {
    static final int N = 3;

    public static void main(String[] args) {
        int[] vals = {1, 2, 3};
        int[] extra = new int[N];
        int count = vals.length;
        int bytes = 4 + 8;
        int area = 14;
        extra[0] = area;
        System.out.printf("%d %d %d\n", count, bytes, extra[0]);
        return;
    }
}
`
	if diff := cmp.Diff(want, javaOut(t, src)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestJavaGlobalAggregateInitRunsStatically(t *testing.T) {
	src := `struct Point {
    int x;
    int y;
};

struct Point origin = {3, 4};

int main(void) {
    printf("%d\n", origin.x);
    return 0;
}
`
	want := `public class Main {
    static class Point {
        int x;
        int y;
    }

    static Point origin = new Point();

    public static void main(String[] args) {
        System.out.println(origin.x);
        return;
    }

    static {
        origin.x = 3;
        origin.y = 4;
    }
}
`
	if diff := cmp.Diff(want, javaOut(t, src)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestJavaMainStatusBecomesExit(t *testing.T) {
	src := `int main(void) {
    return 7;
}
`
	want := `public class Main {
    public static void main(String[] args) {
        System.exit(7);
        return;
    }
}
`
	if diff := cmp.Diff(want, javaOut(t, src)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestJavaUnsupportedConstructs(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{
			"pointer arithmetic",
			"int main(void) { int a[3]; int *p = a; p = p + 1; return 0; }",
			"pointer arithmetic has no translation",
		},
		{
			"pointer comparison",
			"int main(void) { int a[3]; int *p = a; int *q = a; if (p < q) { return 1; } return 0; }",
			"pointer comparison has no translation",
		},
		{
			"string pointer increment",
			"int main(void) { char s[] = \"hi\"; char *p = s; p++; return 0; }",
			"pointer arithmetic has no translation",
		},
		{
			"string character store",
			"int main(void) { char s[] = \"hi\"; s[0] = 'H'; return 0; }",
			"cannot assign into a string character",
		},
		{
			"address of scalar",
			"int main(void) { int x = 1; int *p = &x; return 0; }",
			"the address-of operator has no translation",
		},
		{
			"malloc without cast",
			"int main(void) { int *p; p = malloc(4); return 0; }",
			"requires a pointer cast on its result",
		},
		{
			"printf as a value",
			"int main(void) { int n = printf(\"hi\\n\"); return n; }",
			"only translatable as a statement",
		},
		{
			"statement without effect",
			"int main(void) { int x = 1; x + 1; return 0; }",
			"expression statement has no effect",
		},
		{
			"braced char array",
			"int main(void) { char s[3] = {'h', 'i', '\\0'}; return 0; }",
			"braced character array initializer has no translation",
		},
		{
			"parameters of main",
			"int main(int argc, char **argv) { return 0; }",
			"parameters of main have no translation",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := translate(t, tc.src, quietConfig(config.TargetJava))
			var uce *util.UnsupportedConstructError
			require.ErrorAs(t, err, &uce)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
